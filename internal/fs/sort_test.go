package fs

import (
	"math/rand"
	"reflect"
	"testing"
	"time"
)

func sampleEntries() []Entry {
	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return []Entry{
		{Name: "beta.txt", Path: "/p/beta.txt", Size: 30, ModTime: base.Add(2 * time.Hour), Ext: ".txt", Owner: "bob", Mode: 0644},
		{Name: "Alpha.md", Path: "/p/Alpha.md", Size: 10, ModTime: base.Add(1 * time.Hour), Ext: ".md", Owner: "alice", Mode: 0600},
		{Name: "docs", Path: "/p/docs", IsDir: true, ModTime: base, Mode: 0755},
		{Name: "Zeta", Path: "/p/Zeta", IsSymlink: true, IsSymlinkDir: true, ModTime: base.Add(5 * time.Hour), Mode: 0755},
		{Name: "apple.md", Path: "/p/apple.md", Size: 10, ModTime: base.Add(1 * time.Hour), Ext: ".md", Owner: "alice", Mode: 0644},
		{Name: "nodate", Path: "/p/nodate", Size: 5},
		{Name: "dangling", Path: "/p/dangling", IsSymlink: true, Size: 7, ModTime: base},
	}
}

func names(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.Name
	}
	return out
}

func TestSortFolderLikeFirst(t *testing.T) {
	keys := []SortKey{SortByName, SortByDate, SortBySize, SortByType, SortByPermissions, SortByOwner}
	for _, key := range keys {
		for _, asc := range []bool{true, false} {
			sorted := Sort(sampleEntries(), key, asc)
			seenFile := false
			for _, e := range sorted {
				if !e.IsFolderLike() {
					seenFile = true
				} else if seenFile {
					t.Errorf("%v asc=%v: folder %q after a file: %v", key, asc, e.Name, names(sorted))
				}
			}
		}
	}
}

func TestSortByName(t *testing.T) {
	got := names(Sort(sampleEntries(), SortByName, true))
	want := []string{"docs", "Zeta", "Alpha.md", "apple.md", "beta.txt", "dangling", "nodate"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("name asc = %v, want %v", got, want)
	}

	got = names(Sort(sampleEntries(), SortByName, false))
	want = []string{"Zeta", "docs", "nodate", "dangling", "beta.txt", "apple.md", "Alpha.md"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("name desc = %v, want %v", got, want)
	}
}

func TestSortByDateAndSize(t *testing.T) {
	got := names(Sort(sampleEntries(), SortByDate, true))
	want := []string{"docs", "Zeta", "nodate", "dangling", "Alpha.md", "apple.md", "beta.txt"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("date asc = %v, want %v", got, want)
	}

	got = names(Sort(sampleEntries(), SortBySize, false))
	want = []string{"docs", "Zeta", "beta.txt", "Alpha.md", "apple.md", "dangling", "nodate"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("size desc = %v, want %v", got, want)
	}
}

func TestSortIsIdempotentAndTotal(t *testing.T) {
	keys := []SortKey{SortByName, SortByDate, SortBySize, SortByType, SortByPermissions, SortByOwner}
	rng := rand.New(rand.NewSource(7))
	for _, key := range keys {
		for _, asc := range []bool{true, false} {
			first := Sort(sampleEntries(), key, asc)
			if second := Sort(first, key, asc); !reflect.DeepEqual(first, second) {
				t.Errorf("%v asc=%v not idempotent", key, asc)
			}
			// Input order must not matter.
			shuffled := sampleEntries()
			rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
			if again := Sort(shuffled, key, asc); !reflect.DeepEqual(first, again) {
				t.Errorf("%v asc=%v depends on input order: %v vs %v", key, asc, names(first), names(again))
			}
		}
	}
}

func TestSortDoesNotMutateInput(t *testing.T) {
	in := sampleEntries()
	before := names(in)
	Sort(in, SortBySize, true)
	if !reflect.DeepEqual(before, names(in)) {
		t.Error("Sort reordered its input")
	}
}

func TestParseSortKey(t *testing.T) {
	for key, name := range sortKeyNames {
		got, err := ParseSortKey(" " + name + " ")
		if err != nil || got != key {
			t.Errorf("ParseSortKey(%q) = %v, %v", name, got, err)
		}
	}
	if _, err := ParseSortKey("childCount"); err == nil {
		t.Error("expected error for unknown key")
	}
}
