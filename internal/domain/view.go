package domain

// ItemView is the kind-independent projection of a record used by the
// presentation layer. Fields that do not apply to a kind stay zero.
type ItemView struct {
	Kind            Kind   `json:"kind"`
	ID              string `json:"id" validate:"max=128"`
	Title           string `json:"title" validate:"max=256"`
	Creator         string `json:"creator" validate:"max=256"`
	Genre           string `json:"genre" validate:"max=64"`
	Year            int    `json:"year" validate:"gte=0,lte=9999"`
	ShelfPositions  []int  `json:"shelfPositions" validate:"dive,gte=0"`
	CoverURL        string `json:"coverUrl" validate:"omitempty,url"`
	CoverFile       string `json:"coverFile" validate:"max=128"`
	CoverHash       string `json:"coverHash" validate:"max=64"`
	Favorite        bool   `json:"favorite"`
	Notes           string `json:"notes"`
	Code            string `json:"code" validate:"max=32"`
	Publisher       string `json:"publisher"`
	PageCount       int    `json:"pageCount" validate:"gte=0"`
	CurrentPage     int    `json:"currentPage" validate:"gte=0"`
	ReleaseID       string `json:"releaseId"`
	TrackCount      int    `json:"trackCount" validate:"gte=0"`
	TotalDurationMs int64  `json:"totalDurationMs" validate:"gte=0"`
	DetailsLoaded   bool   `json:"detailsLoaded"`
	// ExtraInfo is the kind-specific summary line, filled on read.
	ExtraInfo string `json:"extraInfo,omitempty"`
}
