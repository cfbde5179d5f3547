package counters

import (
	"encoding/json"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/cases"
)

// retiredSuffix is the literal marker the city appends to a counter's
// display name when the hardware is replaced. The replacement counter
// reuses the bare name, so stripping the marker joins both identities.
const retiredSuffix = " (retired)"

// GroupingOptions controls normalization applied beyond stripping the
// retirement suffix. Upstream names have so far only differed by the
// suffix itself, so both default to off.
type GroupingOptions struct {
	FoldCase           bool
	CollapseWhitespace bool
}

// Grouper merges counter identities into canonical named groups.
type Grouper struct {
	opts GroupingOptions
	fold cases.Caser
	log  *zap.Logger
}

func NewGrouper(opts GroupingOptions, log *zap.Logger) *Grouper {
	return &Grouper{opts: opts, fold: cases.Fold(), log: log}
}

// CanonicalName strips the retirement marker and surrounding whitespace
// from a counter display name.
func CanonicalName(name string) string {
	return strings.TrimSpace(strings.ReplaceAll(name, retiredSuffix, ""))
}

func (g *Grouper) canonical(name string) string {
	key := CanonicalName(name)
	if g.opts.CollapseWhitespace {
		key = strings.Join(strings.Fields(key), " ")
	}
	if g.opts.FoldCase {
		key = g.fold.String(key)
	}
	return key
}

var lastActiveFormats = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

// parseLastActive returns the parsed timestamp and whether the value was
// usable. Unparseable values sort earliest and cannot win representative
// selection unless every member is unparseable.
func parseLastActive(value string) (time.Time, bool) {
	for _, format := range lastActiveFormats {
		if t, err := time.Parse(format, value); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

type member struct {
	loc        CounterLocation
	lastActive time.Time
	parsed     bool
}

// Group is one canonical location with every counter identity that ever
// used its name.
type Group struct {
	Name        string
	MemberIDs   []int64
	GeomType    string
	Coordinates string
	LastActive  string
}

// GroupLocations partitions the input by canonical name. Every input id
// lands in exactly one group, members and groups come out sorted, and the
// representative geometry belongs to the member with the latest
// last_active (ties broken by smallest location_dir_id).
func (g *Grouper) GroupLocations(locs []CounterLocation) []Group {
	byName := make(map[string][]member)
	for _, loc := range locs {
		key := g.canonical(loc.LocationName)
		if key == "" {
			g.log.Warn("dropping counter location with empty canonical name",
				zap.Int64("location_dir_id", loc.LocationDirID))
			continue
		}
		t, ok := parseLastActive(loc.LastActive)
		byName[key] = append(byName[key], member{loc: loc, lastActive: t, parsed: ok})
	}

	groups := make([]Group, 0, len(byName))
	for name, members := range byName {
		rep := pickRepresentative(members)

		ids := make([]int64, 0, len(members))
		for _, m := range members {
			ids = append(ids, m.loc.LocationDirID)
		}
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

		groups = append(groups, Group{
			Name:        name,
			MemberIDs:   ids,
			GeomType:    rep.loc.GeomType,
			Coordinates: rep.loc.Coordinates,
			LastActive:  rep.loc.LastActive,
		})
	}

	sort.Slice(groups, func(i, j int) bool { return groups[i].Name < groups[j].Name })
	return groups
}

// pickRepresentative prefers members with a parseable last_active; among
// those, latest timestamp wins, then smallest id. Only when no member
// parses does an unparseable one win.
func pickRepresentative(members []member) member {
	best := members[0]
	for _, m := range members[1:] {
		switch {
		case m.parsed && !best.parsed:
			best = m
		case m.parsed == best.parsed && m.lastActive.After(best.lastActive):
			best = m
		case m.parsed == best.parsed && m.lastActive.Equal(best.lastActive) &&
			m.loc.LocationDirID < best.loc.LocationDirID:
			best = m
		}
	}
	return best
}

// LocationGroupRows converts grouping output into location_groups rows.
func LocationGroupRows(groups []Group) []LocationGroup {
	rows := make([]LocationGroup, 0, len(groups))
	for _, grp := range groups {
		ids, _ := json.Marshal(grp.MemberIDs)
		rows = append(rows, LocationGroup{
			LocationName:   grp.Name,
			LocationDirIDs: string(ids),
			GeomType:       grp.GeomType,
			Coordinates:    grp.Coordinates,
			LastActive:     grp.LastActive,
		})
	}
	return rows
}
