package protocol

// ElementDescriptor is one entry of a get_elements result: an interactive
// page element with a short label and a ranking priority. Descriptors are
// sorted by priority descending and capped by the ranker.
type ElementDescriptor struct {
	Tag      string `json:"tag"`
	Text     string `json:"text"`
	Type     string `json:"type"`
	ID       string `json:"id"`
	Priority int    `json:"priority"`
}

// PageSnapshot is the page half of a moment capture.
type PageSnapshot struct {
	Text  string `json:"text"`
	Title string `json:"title"`
	URL   string `json:"url"`
	HTML  string `json:"html"`
}

// MomentData pairs a screenshot with the page snapshot taken alongside it.
// Screenshot is a data:image/png;base64 URL.
type MomentData struct {
	Screenshot string        `json:"screenshot"`
	Page       *PageSnapshot `json:"page"`
}
