package config

import "sync"

// ServiceMenu is the live view of the clinic's bookable services and
// suggested slots. It is safe for concurrent readers while a watcher
// replaces its contents on config reload.
type ServiceMenu struct {
	mu        sync.RWMutex
	name      string
	services  []string
	suggested []string
}

// NewServiceMenu builds a menu from the clinic configuration.
func NewServiceMenu(clinic ClinicConfig) *ServiceMenu {
	m := &ServiceMenu{}
	m.Update(clinic)
	return m
}

// ClinicName returns the clinic's display name.
func (m *ServiceMenu) ClinicName() string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.name
}

// Services returns the bookable services in menu order.
func (m *ServiceMenu) Services() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, len(m.services))
	copy(out, m.services)
	return out
}

// SuggestedSlots returns the slots offered on an availability request.
func (m *ServiceMenu) SuggestedSlots() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, len(m.suggested))
	copy(out, m.suggested)
	return out
}

// Update replaces the menu contents.
func (m *ServiceMenu) Update(clinic ClinicConfig) {
	services := make([]string, len(clinic.Services))
	copy(services, clinic.Services)
	suggested := make([]string, len(clinic.SuggestedSlots))
	copy(suggested, clinic.SuggestedSlots)

	m.mu.Lock()
	m.name = clinic.Name
	m.services = services
	m.suggested = suggested
	m.mu.Unlock()
}
