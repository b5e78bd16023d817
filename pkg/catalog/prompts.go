package catalog

const defaultProductDescriptionPromptTemplate = `Write a compelling product description for the following product:

Title: {{.Title}}
Brand: {{.Brand}}
Price: ${{printf "%.2f" .Price}}
Discount: {{.DiscountPercentage}}%
Rating: {{.Rating}}/5
Stock: {{.Stock}} units available
Category: {{.CategoryName}}

Use persuasive, SEO-friendly language.
Highlight benefits and features.
Keep it under 100 words.
Do not use a title or an introductory sentence.`

type ProductDescriptionPromptTemplateData struct {
	Title              string
	Brand              string
	Price              float64
	DiscountPercentage float64
	Rating             float64
	Stock              int
	CategoryName       string
}
