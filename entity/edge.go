package entity

type Edge struct {
	ID           string `json:"id" bson:"id"`
	SourceNodeID string `json:"sourceNodeId" bson:"sourceNodeId"`
	TargetNodeID string `json:"targetNodeId" bson:"targetNodeId"`
}

// EdgesFrom returns all edges leaving source, in stable id order.
func EdgesFrom(edges []Edge, source string) []Edge {
	var out []Edge
	for _, e := range edges {
		if e.SourceNodeID == source {
			out = append(out, e)
		}
	}
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && out[j].ID < out[j-1].ID; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}
