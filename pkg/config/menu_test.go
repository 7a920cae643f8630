package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestServiceMenu_Update(t *testing.T) {
	menu := NewServiceMenu(ClinicConfig{
		Name:           "Consultorio Integral Vida Sana",
		Services:       []string{"Medicina Interna"},
		SuggestedSlots: []string{"🕘 9:00am"},
	})

	assert.Equal(t, "Consultorio Integral Vida Sana", menu.ClinicName())
	assert.Equal(t, []string{"Medicina Interna"}, menu.Services())

	menu.Update(ClinicConfig{
		Name:           "Consultorio Integral Vida Sana",
		Services:       []string{"Medicina Interna", "Nutrición"},
		SuggestedSlots: []string{"🕘 9:00am", "🕒 3:00pm"},
	})

	assert.Equal(t, []string{"Medicina Interna", "Nutrición"}, menu.Services())
	assert.Equal(t, []string{"🕘 9:00am", "🕒 3:00pm"}, menu.SuggestedSlots())
}

func TestServiceMenu_ReturnsCopies(t *testing.T) {
	menu := NewServiceMenu(ClinicConfig{
		Name:     "Clinic",
		Services: []string{"Medicina Interna"},
	})

	services := menu.Services()
	services[0] = "mutated"

	assert.Equal(t, []string{"Medicina Interna"}, menu.Services())
}

func TestConfig_ApplyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	assert.Equal(t, "migrations", cfg.Database.MigrationsDir)
	assert.Equal(t, int(20), cfg.Limits.MessagesPerWindow)
	assert.Equal(t, 10, cfg.Jobs.Concurrency)
	assert.Greater(t, int64(cfg.Session.TTL), int64(cfg.Survey.Delay), "session ttl must outlive the survey delay")
}
