package api

import (
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"

	apierrors "divorce-wizard/internal/common/errors"
	"divorce-wizard/internal/models"

	json "github.com/goccy/go-json"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeDocument(w http.ResponseWriter, doc *models.GeneratedDocument) {
	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": doc.FileName}))
	w.Header().Set("Content-Length", strconv.Itoa(len(doc.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc.Data)
}

// decodeJSON reads at most limit bytes of JSON into v.
func decodeJSON(r *http.Request, limit int64, v interface{}) error {
	body := io.Reader(r.Body)
	if limit > 0 {
		body = io.LimitReader(r.Body, limit+1)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return apierrors.NewInvalidRequestError(fmt.Sprintf("read body: %v", err))
	}
	if limit > 0 && int64(len(data)) > limit {
		return apierrors.NewInvalidRequestError(fmt.Sprintf("body exceeds %d bytes", limit))
	}
	if len(data) == 0 {
		return apierrors.NewInvalidRequestError("empty body")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return apierrors.NewInvalidRequestError(fmt.Sprintf("invalid json body: %v", err))
	}
	return nil
}

func queryInt(r *http.Request, name string, def int) int {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
