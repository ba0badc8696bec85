// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package visualize

import (
	"fmt"
	"strings"

	"github.com/AleutianAI/pixelgp/pkg/ux"
	"github.com/AleutianAI/pixelgp/services/evolve/gp"
)

// ChannelNames labels the three program channels.
var ChannelNames = [gp.NumChannels]string{"red", "green", "blue"}

// DumpTree renders t one node per line, indented by depth. Each non-root
// line starts with the branch it hangs from (L or R).
//
// Example output:
//
//	(*)
//	  L (+)
//	    L src
//	    R 0.2500
//	  R src
func DumpTree(t *gp.Tree) string {
	if t == nil || t.Root == nil {
		return ux.Styles.Muted.Render("<empty>")
	}

	var b strings.Builder
	for v := range t.Walk() {
		b.WriteString(strings.Repeat("  ", v.Depth))
		if v.Path != "" {
			b.WriteString(ux.Styles.Muted.Render(v.Path[len(v.Path)-1:]))
			b.WriteByte(' ')
		}
		b.WriteString(nodeLabel(v))
		b.WriteByte('\n')
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func nodeLabel(v gp.NodeView) string {
	switch v.Kind {
	case gp.KindOperator:
		return ux.Styles.Highlight.Render("(" + v.Op.Symbol() + ")")
	case gp.KindSource:
		return ux.Styles.Success.Render("src")
	default:
		return ux.Styles.Warning.Render(fmt.Sprintf("%.4f", v.Constant))
	}
}

// DumpProgram renders every channel of p: a header with depth and size,
// the infix expression, and the tree. channel < 0 selects all channels.
func DumpProgram(p *gp.Program, channel int) (string, error) {
	if p == nil {
		return "", fmt.Errorf("nil program")
	}
	if channel >= gp.NumChannels {
		return "", fmt.Errorf("channel %d out of range [0, %d)", channel, gp.NumChannels)
	}

	var sections []string
	for i, t := range p.Trees {
		if channel >= 0 && i != channel {
			continue
		}
		header := ux.Styles.Title.Render(fmt.Sprintf("channel %d (%s)", i, ChannelNames[i])) +
			ux.Styles.Muted.Render(fmt.Sprintf("  depth %d  size %d", t.Depth(), t.Size()))
		sections = append(sections, header+"\n"+t.String()+"\n\n"+DumpTree(t))
	}
	return strings.Join(sections, "\n\n"), nil
}
