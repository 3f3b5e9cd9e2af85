package assistant

// Defaults for the Contoso sales example.
const (
	Name         = "Example: Contoso sales RAG"
	Instructions = "You are an assistant that looks up sales data and helps visualize the information based" +
		" on user queries. When asked to generate a graph, chart, or other visualization, use" +
		" the code interpreter tool to do so."
	Question     = "How well did product 113045 sell in February? Graph its trend over time."
	DocumentName = "monthly_sales.json"
)

// SalesDocument is a contrived sales history the assistant retrieves from.
var SalesDocument = []byte(`{
    "description": "This document contains the sale history data for Contoso products.",
    "sales": [
        {
            "month": "January",
            "by_product": {
                "113043": 15,
                "113045": 12,
                "113049": 2
            }
        },
        {
            "month": "February",
            "by_product": {
                "113045": 22
            }
        },
        {
            "month": "March",
            "by_product": {
                "113045": 16,
                "113055": 5
            }
        }
    ]
}
`)
