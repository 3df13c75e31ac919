package domain

import "time"

// Collection groups links. Collections nest through ParentID; a nil parent
// marks a root. The parent chain never contains a cycle: moves that would
// create one are rejected.
type Collection struct {
	Timestamps
	UserID      string  `json:"user_id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Color       string  `json:"color,omitempty"`
	Icon        string  `json:"icon,omitempty"`
	IsPrivate   bool    `json:"is_private"`
	ParentID    *string `json:"parent_id,omitempty"`
}

// IsRoot reports whether the collection has no parent.
func (c *Collection) IsRoot() bool {
	return c.ParentID == nil
}

// LinkCollection associates a link with a collection.
type LinkCollection struct {
	ID           string    `json:"id"`
	LinkID       string    `json:"link_id"`
	CollectionID string    `json:"collection_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// CollectionWithCount is a collection together with its direct link count.
type CollectionWithCount struct {
	Collection
	LinkCount int `json:"link_count"`
}

// CollectionNode is a collection with its nested children, used for tree views.
type CollectionNode struct {
	Collection
	Children []*CollectionNode `json:"children"`
}

// BuildCollectionTree arranges a flat list into root nodes. Collections whose
// parent is not in the list are treated as roots. Input order is kept among siblings.
func BuildCollectionTree(collections []Collection) []*CollectionNode {
	nodes := make(map[string]*CollectionNode, len(collections))
	for _, c := range collections {
		nodes[c.ID] = &CollectionNode{Collection: c, Children: []*CollectionNode{}}
	}

	roots := make([]*CollectionNode, 0)
	for _, c := range collections {
		node := nodes[c.ID]
		if c.ParentID != nil {
			if parent, ok := nodes[*c.ParentID]; ok {
				parent.Children = append(parent.Children, node)
				continue
			}
		}
		roots = append(roots, node)
	}
	return roots
}
