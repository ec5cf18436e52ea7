// SPDX-License-Identifier: Apache-2.0

package cli

import (
	"fmt"
	"io"

	"github.com/jenkmcp/jenkmcp/internal/tool"
)

// RunList lists the registered tools, optionally filtered by tier.
func RunList(reg *tool.Registry, w io.Writer, tierFilter string) int {
	var filter *tool.Tier
	if tierFilter != "" {
		t, err := tool.ParseTier(tierFilter)
		if err != nil {
			fmt.Fprintf(w, "jenkmcp list: %v\n", err)
			return 1
		}
		filter = &t
	}

	for _, t := range reg.All() {
		if filter != nil && t.Tier != *filter {
			continue
		}
		fmt.Fprintf(w, "%-22s %-10s %s\n", t.Name, t.Tier, t.Description)
	}
	return 0
}
