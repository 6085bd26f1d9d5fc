package handler

import (
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// HeaderTimezone IANA zone of the caller's calendar
const HeaderTimezone = "X-Timezone"

// Calendar resolves the calendar zone of a request
type Calendar struct {
	Default *time.Location
	Clock   func() time.Time
}

// NewCalendar ...
func NewCalendar(def *time.Location) *Calendar {
	if def == nil {
		def = time.UTC
	}
	return &Calendar{Default: def, Clock: time.Now}
}

// Location zone named by the X-Timezone header, Default when absent or unknown
func (cal *Calendar) Location(c echo.Context) *time.Location {
	if name := c.Request().Header.Get(HeaderTimezone); name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	return cal.Default
}

// Now current time in the caller's zone
func (cal *Calendar) Now(c echo.Context) time.Time {
	return cal.Clock().In(cal.Location(c))
}

// KeyedMutex serialises work per key, entries are dropped once unused
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyedEntry
}

type keyedEntry struct {
	mu   sync.Mutex
	refs int
}

// NewKeyedMutex ...
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyedEntry)}
}

// Lock blocks until key is free and returns its unlock function
func (km *KeyedMutex) Lock(key string) (unlock func()) {
	km.mu.Lock()
	e, ok := km.locks[key]
	if !ok {
		e = new(keyedEntry)
		km.locks[key] = e
	}
	e.refs++
	km.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		km.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(km.locks, key)
		}
		km.mu.Unlock()
	}
}

func (km *KeyedMutex) size() int {
	km.mu.Lock()
	defer km.mu.Unlock()
	return len(km.locks)
}
