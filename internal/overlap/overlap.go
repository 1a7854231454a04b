package overlap

import "github.com/dukerupert/daywich/internal/model"

// FindOverlapping returns every event in pool that is on the same date as
// candidate and whose [start, end) interval intersects the candidate's.
// The candidate itself (same non-empty ID) is skipped. Pool order is kept.
func FindOverlapping(candidate model.Event, pool []model.Event) []model.Event {
	cs, ce, ok := span(candidate)
	if !ok {
		return nil
	}

	var out []model.Event
	for _, e := range pool {
		if e.Date != candidate.Date {
			continue
		}
		if candidate.ID != "" && e.ID == candidate.ID {
			continue
		}
		s, en, ok := span(e)
		if !ok {
			continue
		}
		if cs < en && s < ce {
			out = append(out, e)
		}
	}
	return out
}

// Overlaps reports whether a and b are on the same date and their half-open
// intervals intersect. An event ending exactly when the other starts does not
// overlap it.
func Overlaps(a, b model.Event) bool {
	if a.Date != b.Date {
		return false
	}
	as, ae, ok := span(a)
	if !ok {
		return false
	}
	bs, be, ok := span(b)
	if !ok {
		return false
	}
	return as < be && bs < ae
}

func span(e model.Event) (start, end int, ok bool) {
	start, err := model.ClockMinutes(e.StartTime)
	if err != nil {
		return 0, 0, false
	}
	end, err = model.ClockMinutes(e.EndTime)
	if err != nil {
		return 0, 0, false
	}
	return start, end, true
}
