package ics

import (
	ical "github.com/arran4/golang-ical"

	"predicacal/internal/model"
)

// FeedTTL is how often subscribed clients are asked to refresh.
const FeedTTL = "PT1H"

// Feed renders events as a subscription calendar (webcal). It uses the
// Apple flavour, which most clients display sensibly.
func Feed(events []model.CalendarEvent, opts Options) string {
	cal := opts.newCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetXPublishedTTL(FeedTTL)
	addEvents(cal, events, FlavorApple, opts)
	return cal.Serialize()
}
