package fulfillment

// Templates holds the print-ready PDF paths for one product.
type Templates struct {
	Cover    string
	Interior string
}

// productTemplates maps product display names to their print templates.
// Products without an entry still submit, with empty paths.
var productTemplates = map[string]Templates{
	"Born To Be Loved": {
		Cover:    "https://keepr-audio.s3.eu-north-1.amazonaws.com/pdfs/Born+To+Be+Loved/cover-2.pdf",
		Interior: "https://keepr-audio.s3.eu-north-1.amazonaws.com/pdfs/Born+To+Be+Loved/BornToBeLoved_210x210_interior-2.pdf",
	},
	"I Will Always Love You": {
		Cover:    "https://keepr-audio.s3.eu-north-1.amazonaws.com/pdfs/I+Will+Always+Love+You/IWillAlwayaLoveYou_HardbackCoverTemplate-2.pdf",
		Interior: "https://keepr-audio.s3.eu-north-1.amazonaws.com/pdfs/I+Will+Always+Love+You/IWillAlwaysLoveYou_210x210_interior-3.pdf",
	},
}
