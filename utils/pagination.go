package utils

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// CreatePaginationComponents creates a set of pagination buttons. The custom
// IDs have the form prefix:page[:arg...].
func CreatePaginationComponents(currentPage, totalPages int, customIDPrefix string, args ...string) []discordgo.MessageComponent {
	if totalPages <= 1 {
		return nil
	}

	buttonArgs := ""
	for _, arg := range args {
		buttonArgs += ":" + arg
	}

	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "上一页",
					Style:    discordgo.PrimaryButton,
					Disabled: currentPage <= 1,
					CustomID: fmt.Sprintf("%s:%d%s", customIDPrefix, currentPage-1, buttonArgs),
				},
				discordgo.Button{
					Label:    "下一页",
					Style:    discordgo.PrimaryButton,
					Disabled: currentPage >= totalPages,
					CustomID: fmt.Sprintf("%s:%d%s", customIDPrefix, currentPage+1, buttonArgs),
				},
			},
		},
	}
}

// ParsePaginationID splits a custom ID built by CreatePaginationComponents.
// The last argument keeps any colons it contains.
func ParsePaginationID(customID, prefix string, nargs int) (page int, args []string, ok bool) {
	rest, found := strings.CutPrefix(customID, prefix+":")
	if !found {
		return 0, nil, false
	}
	parts := strings.SplitN(rest, ":", nargs+1)
	if len(parts) != nargs+1 {
		return 0, nil, false
	}
	page, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, nil, false
	}
	return page, parts[1:], true
}

// PageBounds clamps page to [1, totalPages] and returns the slice bounds of
// that page. An empty list has a single empty page.
func PageBounds(total, page, perPage int) (start, end, clamped, totalPages int) {
	totalPages = (total + perPage - 1) / perPage
	if totalPages < 1 {
		totalPages = 1
	}
	clamped = min(max(page, 1), totalPages)
	start = (clamped - 1) * perPage
	end = min(start+perPage, total)
	return start, end, clamped, totalPages
}
