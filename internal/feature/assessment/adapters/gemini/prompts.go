package gemini

import (
	"fmt"
	"strings"

	"before_you_sign/internal/feature/assessment/domain/entity"
)

// SystemPrompt はキャッシュされる文書に付与するシステム指示です。
const SystemPrompt = `You should read the legal document and help the end-user considering to accept the terms.
Answer in English.
`

// MetadataPrompt は文書のメタデータを求めるプロンプトです。
const MetadataPrompt = `Describe the document as JSON with these fields:
- "document_language": full name of the document's language;
- "document_type": category like "Terms of Service" or "Privacy Policy";
- "service_name": name of the service;
- "service_nature": short description of its nature, such as "a web store for gardening",
  "a multiplayer online videogame" or "a dating platform with a focus on video calls".
`

const intermediateTemplate = `Document type: %s.
Document language: %s.
Service: %s.

1. Compared to typical documents of this type, are there any unusual provisions?
   If yes, cite a few of the most unusual ones.
2. What concerns do users generally voice for documents of this type?
   How are these concerns addressed in the document?
3. Does the nature of the service involve any risks for the user? How serious are they?
   How are these risks addressed in the document?
`

// IntermediatePrompt はメタデータから自由記述の分析を求めるプロンプトを生成します。
func IntermediatePrompt(meta entity.Metadata) string {
	return fmt.Sprintf(intermediateTemplate, meta.DocumentType, meta.DocumentLanguage, meta.ServiceNature)
}

// SummaryPrompt は最終評価を求めるプロンプトです。評価の説明はentity.Gradeから生成します。
var SummaryPrompt = buildSummaryPrompt()

func buildSummaryPrompt() string {
	var b strings.Builder
	b.WriteString("Finish with a general score of how much attention the user should pay to the rules\n")
	b.WriteString("on a scale from A to F and a one-sentence summary.\n")
	for i, g := range entity.Grades {
		sep := ","
		if i == len(entity.Grades)-1 {
			sep = "."
		}
		fmt.Fprintf(&b, "- %q means %q%s\n", g.String(), g.Description(), sep)
	}
	b.WriteString("\nReply in JSON with the fields \"score\" (the letter) and \"comment\" (the summary).\n")
	return b.String()
}
