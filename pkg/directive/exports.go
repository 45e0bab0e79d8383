// SPDX-License-Identifier: MPL-2.0

package directive

import (
	"context"
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"
)

// exportedCallables returns the names of top-level functions not starting
// with an underscore, in declaration order. Decorated functions count.
func exportedCallables(ctx context.Context, src []byte) ([]string, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(python.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse python: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	var names []string
	for i := 0; i < int(root.NamedChildCount()); i++ {
		node := root.NamedChild(i)
		if node.Type() == "decorated_definition" {
			node = node.ChildByFieldName("definition")
			if node == nil {
				continue
			}
		}
		if node.Type() != "function_definition" {
			continue
		}
		nameNode := node.ChildByFieldName("name")
		if nameNode == nil {
			continue
		}
		name := nameNode.Content(src)
		if name == "" || strings.HasPrefix(name, "_") {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}
