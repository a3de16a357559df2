package scheduler

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// cronParser uses standard 5-field cron expressions (minute, hour, dom, month, dow).
var cronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// NextFire returns the next wall-clock moment a daily "HH:MM" reminder
// fires after now. Returns the zero time for an unparseable value.
func NextFire(hhmm string, now time.Time) time.Time {
	parts := strings.SplitN(hhmm, ":", 2)
	if len(parts) != 2 {
		return time.Time{}
	}
	hour, err1 := strconv.Atoi(parts[0])
	minute, err2 := strconv.Atoi(parts[1])
	if err1 != nil || err2 != nil {
		return time.Time{}
	}

	sched, err := cronParser.Parse(fmt.Sprintf("%d %d * * *", minute, hour))
	if err != nil {
		return time.Time{}
	}
	return sched.Next(now)
}

// UntilNextFire returns the duration from now until the reminder's next
// fire time. Returns 0 on parse error.
func UntilNextFire(hhmm string, now time.Time) time.Duration {
	next := NextFire(hhmm, now)
	if next.IsZero() {
		return 0
	}
	d := next.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}
