package desk

// FlatCategory is one category of a flattened tree
type FlatCategory struct {
	ID          string
	Name        string
	ParentName  string
	Depth       int
	HasChildren bool
}

// FlattenCategoryTree walks root depth-first, parents before children
func FlattenCategoryTree(root Category) []FlatCategory {
	var out []FlatCategory
	flatten(root, "", 0, &out)
	return out
}

func flatten(c Category, parentName string, depth int, out *[]FlatCategory) {
	if c.ID == "" && c.Name == "" && len(c.Categories) == 0 {
		return
	}
	*out = append(*out, FlatCategory{
		ID:          c.ID,
		Name:        c.Name,
		ParentName:  parentName,
		Depth:       depth,
		HasChildren: len(c.Categories) > 0,
	})
	for _, child := range c.Categories {
		flatten(child, c.Name, depth+1, out)
	}
}
