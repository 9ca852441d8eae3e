package gemini

import (
	"maps"
	"slices"

	"google.golang.org/genai"

	"before_you_sign/internal/feature/assessment/domain/entity"
)

// metadataSchema はMetadataの構造化出力スキーマです。
func metadataSchema() *genai.Schema {
	str := func(desc string) *genai.Schema {
		return &genai.Schema{Type: genai.TypeString, Description: desc}
	}
	return requireAll(&genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"document_language": str("Full name of the document's language."),
			"document_type":     str(`Category like "Terms of Service" or "Privacy Policy".`),
			"service_name":      str("Name of the service."),
			"service_nature":    str("Short description of the nature of the service."),
		},
		PropertyOrdering: []string{"document_language", "document_type", "service_name", "service_nature"},
	})
}

// summarySchema はSummaryの構造化出力スキーマです。scoreはA〜Fに制限します。
func summarySchema() *genai.Schema {
	grades := make([]string, 0, len(entity.Grades))
	for _, g := range entity.Grades {
		grades = append(grades, g.String())
	}
	return requireAll(&genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"score":   {Type: genai.TypeString, Format: "enum", Enum: grades},
			"comment": {Type: genai.TypeString, Description: "One-sentence summary."},
		},
		PropertyOrdering: []string{"score", "comment"},
	})
}

// requireAll はオブジェクトスキーマのすべてのプロパティを必須にします（入れ子も含む）。
// PropertyOrderingにない項目は名前順で後ろに付きます。
func requireAll(s *genai.Schema) *genai.Schema {
	if s == nil {
		return nil
	}
	if len(s.Properties) > 0 {
		required := slices.Clone(s.PropertyOrdering)
		for _, name := range slices.Sorted(maps.Keys(s.Properties)) {
			if !slices.Contains(required, name) {
				required = append(required, name)
			}
		}
		s.Required = required
		for _, p := range s.Properties {
			requireAll(p)
		}
	}
	requireAll(s.Items)
	return s
}
