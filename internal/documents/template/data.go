package template

import (
	"divorce-wizard/internal/models"
)

// BuildData flattens DocumentData into the lookup map templates read:
// basic info fields at the top level, claim answers under "formData".
// Children come from the explicit list or, failing that, from formData.
func BuildData(doc models.DocumentData) map[string]interface{} {
	data := doc.BasicInfo.AsMap()

	formData := doc.FormData
	if formData == nil {
		formData = map[string]interface{}{}
	}
	data["formData"] = formData

	claims := make([]interface{}, 0, len(doc.SelectedClaims))
	for _, c := range doc.SelectedClaims {
		claims = append(claims, string(c))
	}
	data["selectedClaims"] = claims

	if len(doc.Children) > 0 {
		children := make([]interface{}, 0, len(doc.Children))
		for _, c := range doc.Children {
			children = append(children, map[string]interface{}{
				"name":        c.Name,
				"birthDate":   c.BirthDate,
				"idNumber":    c.IDNumber,
				"address":     c.Address,
				"residesWith": c.ResidesWith,
			})
		}
		data["children"] = children
	} else if children, ok := formData["children"].([]interface{}); ok {
		data["children"] = children
	}

	return data
}
