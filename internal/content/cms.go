package content

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	commonhttp "divorce-wizard/internal/common/http"

	json "github.com/goccy/go-json"
)

var ErrCMSQueryFailed = errors.New("CMS_QUERY_FAILED")

// postProjection maps CMS documents onto models.BlogPost fields.
const postProjection = `{"id": _id, title, "slug": slug.current, excerpt, "author": author->name,
	"categories": categories[]->title, "imageUrl": mainImage.asset->url, publishedAt}`

const postWithBodyProjection = `{"id": _id, title, "slug": slug.current, excerpt, "author": author->name,
	"categories": categories[]->title, "imageUrl": mainImage.asset->url, publishedAt, "body": pt::text(body)}`

const publishedPosts = `*[_type == "post" && defined(slug.current) && defined(publishedAt)]`

type CMSConfig struct {
	ProjectID  string
	Dataset    string
	APIVersion string
	Token      string
	BaseURL    string
}

// CMSClient runs GROQ queries against the content API.
type CMSClient struct {
	http     *commonhttp.Client
	queryURL string
	token    string
}

func NewCMSClient(httpClient *commonhttp.Client, cfg CMSConfig) *CMSClient {
	base := cfg.BaseURL
	if base == "" {
		base = fmt.Sprintf("https://%s.api.sanity.io", cfg.ProjectID)
	}
	version := strings.TrimPrefix(cfg.APIVersion, "v")
	return &CMSClient{
		http:     httpClient,
		queryURL: fmt.Sprintf("%s/v%s/data/query/%s", strings.TrimRight(base, "/"), version, cfg.Dataset),
		token:    cfg.Token,
	}
}

// Query runs a GROQ query and decodes its result into out. params are bound
// as $name and sent JSON-encoded.
func (c *CMSClient) Query(ctx context.Context, groq string, params map[string]interface{}, out interface{}) error {
	q := url.Values{}
	q.Set("query", groq)
	for name, value := range params {
		encoded, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("%w: encode param %s: %v", ErrCMSQueryFailed, name, err)
		}
		q.Set("$"+name, string(encoded))
	}

	headers := map[string]string{}
	if c.token != "" {
		headers["Authorization"] = "Bearer " + c.token
	}

	// The envelope decodes result straight into out; a null result leaves
	// out at its zero value.
	envelope := struct {
		Result interface{} `json:"result"`
	}{Result: out}
	if err := c.http.GetJSON(ctx, c.queryURL+"?"+q.Encode(), headers, &envelope); err != nil {
		var statusErr *commonhttp.StatusError
		if errors.As(err, &statusErr) {
			return fmt.Errorf("%w: status %d", ErrCMSQueryFailed, statusErr.StatusCode)
		}
		return fmt.Errorf("%w: %v", ErrCMSQueryFailed, err)
	}
	return nil
}
