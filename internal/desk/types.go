package desk

// Article is a knowledge-base article as returned by the Zoho Desk API
type Article struct {
	ID           string   `json:"id"`
	Title        string   `json:"title"`
	Answer       string   `json:"answer"`
	CategoryID   string   `json:"categoryId"`
	DepartmentID string   `json:"departmentId"`
	Status       *string  `json:"status,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	Summary      string   `json:"summary,omitempty"`
	Permalink    string   `json:"permalink,omitempty"`
	CreatedTime  string   `json:"createdTime,omitempty"`
	ModifiedTime string   `json:"modifiedTime,omitempty"`
}

// ArticleDraft is the body of an article creation request. Optional fields
// are omitted when empty so the destination applies its own defaults.
type ArticleDraft struct {
	Title        string   `json:"title"`
	Answer       string   `json:"answer"`
	CategoryID   string   `json:"categoryId" validate:"required,resolved"`
	DepartmentID string   `json:"departmentId"`
	Status       *string  `json:"status,omitempty"`
	Tags         []string `json:"tags,omitempty"`
	Summary      string   `json:"summary,omitempty"`
}

// CreatedArticle is the part of a creation response the migration keeps
type CreatedArticle struct {
	ID        string `json:"id"`
	Permalink string `json:"permalink"`
}

// ArticlePage is one window of the article listing
type ArticlePage struct {
	Items []Article `json:"data"`
	Count int       `json:"-"`
}

// Category is a node of a department's category tree
type Category struct {
	ID               string     `json:"id"`
	Name             string     `json:"name"`
	ParentCategoryID string     `json:"parentCategoryId,omitempty"`
	Categories       []Category `json:"categories,omitempty"`
}
