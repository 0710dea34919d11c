package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/justyntemme/duopane/internal/fs"
	"github.com/justyntemme/duopane/internal/panel"
)

// formatEntry renders one listing row: mode, owner, size, age, name.
func formatEntry(e fs.Entry, now time.Time) string {
	size := "-"
	if !e.IsFolderLike() {
		size = humanize.Bytes(uint64(e.Size))
	}
	age := "-"
	if !e.ModTime.IsZero() {
		age = humanize.RelTime(e.ModTime, now, "ago", "from now")
	}
	name := e.Name
	switch {
	case e.IsDir:
		name += "/"
	case e.IsSymlinkDir:
		name += "@/"
	case e.IsSymlink:
		name += "@"
	}
	owner := e.Owner
	if owner == "" {
		owner = "-"
	}
	return fmt.Sprintf("%-11s %-10s %9s  %-16s %s", e.Mode, owner, size, age, name)
}

func printEntries(w io.Writer, entries []fs.Entry) {
	now := time.Now()
	for _, e := range entries {
		fmt.Fprintln(w, formatEntry(e, now))
	}
}

func printState(w io.Writer, st panel.State) {
	fmt.Fprintf(w, "[%s] %s  (%s, sort %s %s, %s entries)\n",
		st.Side, st.Path, st.Status, st.SortKey, direction(st.SortAscending), humanize.Comma(int64(len(st.Entries))))
	if st.LastError != nil {
		fmt.Fprintf(w, "  last error: %v\n", st.LastError)
	}
	if !st.LastScan.IsZero() {
		fmt.Fprintf(w, "  scanned %s\n", humanize.Time(st.LastScan))
	}
	var nav []string
	if st.CanGoBack {
		nav = append(nav, "back")
	}
	if st.CanGoForward {
		nav = append(nav, "fwd")
	}
	if len(nav) > 0 {
		fmt.Fprintf(w, "  history: %s\n", strings.Join(nav, ", "))
	}
	printEntries(w, st.Entries)
}

func direction(ascending bool) string {
	if ascending {
		return "asc"
	}
	return "desc"
}
