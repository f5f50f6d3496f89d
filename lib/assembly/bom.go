// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package assembly

// UnknownName is the BOM display name of a product with no name and no
// product id.
const UnknownName = "Unknown"

// BomOccurrence is one placement of a product in the assembly.
type BomOccurrence struct {
	NodeID     string   `json:"nodeId"`
	LabelEntry string   `json:"labelEntry,omitempty"`
	Name       string   `json:"name,omitempty"`
	Path       []string `json:"path,omitempty"`
}

// BomItem aggregates all occurrences of one product. Quantity equals
// len(Instances).
type BomItem struct {
	ProductID   string          `json:"productId"`
	ProductName string          `json:"productName,omitempty"`
	Kind        Kind            `json:"kind,omitempty"`
	Quantity    int             `json:"quantity"`
	Instances   []BomOccurrence `json:"instances"`
}

// BomExport is a bill of materials, one item per product.
type BomExport struct {
	Items []BomItem `json:"items"`
}

// BomLine is one display row of a BOM summary.
type BomLine struct {
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	ProductID string `json:"productId,omitempty"`
	Kind      Kind   `json:"kind,omitempty"`
}

// BuildBom aggregates the occurrences of nodeMap by ProductID, in
// depth-first order of first occurrence. Nodes without a ProductID are
// their own product, keyed by node id.
func BuildBom(nodeMap NodeMap) BomExport {
	positions := make(map[string]int)
	var items []BomItem
	for _, id := range nodeMap.OrderedIDs() {
		node := nodeMap.Nodes[id]
		productID := node.ProductID
		if productID == "" {
			productID = id
		}
		position, seen := positions[productID]
		if !seen {
			position = len(items)
			positions[productID] = position
			items = append(items, BomItem{ProductID: productID, Kind: node.Kind})
		}
		item := &items[position]
		if item.ProductName == "" {
			item.ProductName = node.Name
		}
		item.Instances = append(item.Instances, BomOccurrence{
			NodeID:     id,
			LabelEntry: node.LabelEntry,
			Name:       node.Name,
			Path:       node.Path,
		})
		item.Quantity = len(item.Instances)
	}
	return BomExport{Items: items}
}

// BuildBomSummary names each BOM item for display. The name is the
// first non-empty mapped node name of the product (mapped nodes prefer
// cleaned glTF names), then the item's ProductName, then its
// ProductID, then UnknownName.
func BuildBomSummary(bom BomExport, mapped MappedNodeMap) []BomLine {
	pretty := make(map[string]string)
	for _, node := range mapped.Ordered() {
		if node.ProductID == "" || node.Name == "" {
			continue
		}
		if _, ok := pretty[node.ProductID]; !ok {
			pretty[node.ProductID] = node.Name
		}
	}

	lines := make([]BomLine, 0, len(bom.Items))
	for _, item := range bom.Items {
		quantity := item.Quantity
		if len(item.Instances) > 0 {
			quantity = len(item.Instances)
		}
		lines = append(lines, BomLine{
			Name:      firstNonEmpty(pretty[item.ProductID], item.ProductName, item.ProductID, UnknownName),
			Quantity:  quantity,
			ProductID: item.ProductID,
			Kind:      item.Kind,
		})
	}
	return lines
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
