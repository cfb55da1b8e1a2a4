package ingest

import (
	"strings"
	"time"
)

// AnnounceConfig controls proactive placement announcements for a small
// set of easy-to-lose objects.
type AnnounceConfig struct {
	Enabled  bool
	Objects  []string
	Cooldown time.Duration
}

// Announcer receives placement announcements ("keys placed on desk").
// Typically wired to text-to-speech; nil disables announcements.
type Announcer func(text string)

// announcer enforces the per-object cooldown. Cooldown state is owned
// here, injected at pipeline construction rather than ambient globals.
type announcer struct {
	cfg       AnnounceConfig
	objects   map[string]bool
	lastSpoke map[string]time.Time
	emit      Announcer
	now       func() time.Time
}

func newAnnouncer(cfg AnnounceConfig, emit Announcer, now func() time.Time) *announcer {
	objects := make(map[string]bool, len(cfg.Objects))
	for _, o := range cfg.Objects {
		objects[strings.ToLower(o)] = true
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = 60 * time.Second
	}
	return &announcer{
		cfg:       cfg,
		objects:   objects,
		lastSpoke: make(map[string]time.Time),
		emit:      emit,
		now:       now,
	}
}

// placed announces a watched object's new location unless it was
// announced within the cooldown window.
func (a *announcer) placed(object, location string) bool {
	if !a.cfg.Enabled || a.emit == nil {
		return false
	}
	key := strings.ToLower(object)
	if !a.objects[key] {
		return false
	}
	now := a.now()
	if last, ok := a.lastSpoke[key]; ok && now.Sub(last) < a.cfg.Cooldown {
		return false
	}
	a.lastSpoke[key] = now
	a.emit(object + " placed on " + location)
	return true
}
