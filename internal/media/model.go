package media

type Type string

const (
	TypeImage Type = "image"
	TypeVideo Type = "video"
)

type Media struct {
	ID        int64  `json:"id"`
	ProductID int64  `json:"product_id"`
	URL       string `json:"url"`
	MediaType Type   `json:"media_type"`
	IsPrimary bool   `json:"is_primary"`
	SortOrder int    `json:"sort_order"`
}

type UploadInput struct {
	Filename    string
	ContentType string
	Data        []byte
	IsPrimary   bool
}
