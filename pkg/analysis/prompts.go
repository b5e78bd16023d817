package analysis

const defaultChunkSummaryPromptTemplate = `You are an AI assistant helping summarize product reviews.
Only return the expected output.
Summarize the following customer reviews in two parts:
1. Most appreciated features
2. Most common complaints

Reviews:
{{range .Reviews}}- {{.}}
{{end}}`

const defaultMergeSummariesPromptTemplate = `You are an AI assistant.
Only return the expected output.
Combine the following review summaries into a single, unified final summary with:
- Top liked features
- Top complaints

Summaries:
{{.Summaries}}`

type ChunkSummaryPromptTemplateData struct {
	Reviews []string
}

type MergeSummariesPromptTemplateData struct {
	Summaries string
}
