package search

const defaultRefineQueryPromptTemplate = `You are an assistant refining search queries on an e-commerce website.
User query: "{{.Query}}"
Refine the query without being creative. Only correct what the user intended to search for.
Return only the refined query.`

// productEmbeddingTextTemplate is formatted with title, description and brand
const productEmbeddingTextTemplate = "Title: %s\nDescription: %s\nBrand: %s"
