package onpage

// Snapshot is the on-page state of a domain's landing page
type Snapshot struct {
	URL             string   `json:"url"`
	Title           string   `json:"title"`
	TitleLength     int      `json:"titleLength"`
	MetaDescription string   `json:"metaDescription"`
	DescriptionLen  int      `json:"descriptionLength"`
	H1Count         int      `json:"h1Count"`
	H2Count         int      `json:"h2Count"`
	H1Text          []string `json:"h1Text"`
	WordCount       int      `json:"wordCount"`
	TotalImages     int      `json:"totalImages"`
	ImagesWithAlt   int      `json:"imagesWithAlt"`
	MobileOptimized bool     `json:"mobileOptimized"`
	PageSize        int      `json:"pageSize"`
}
