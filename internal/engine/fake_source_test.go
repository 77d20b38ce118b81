// Retentio - User Retention Cohort Analytics for Federated Communication Services
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/retentio

package engine

import (
	"context"

	"github.com/tomtom215/retentio/internal/models"
	"github.com/tomtom215/retentio/internal/store"
)

// fakeSource is an in-memory store.Source for engine tests. It mirrors the
// real query semantics: a new user must both register and be active in the
// window, and user-agent observations cover every device used since a
// timestamp.
type fakeSource struct {
	registrations []fakeRegistration
	visits        []models.ActivityRecord
}

type fakeRegistration struct {
	user       models.User
	creationMS int64
}

func (f *fakeSource) addUser(id string, creationMS int64, providers ...string) {
	f.registrations = append(f.registrations, fakeRegistration{
		user:       models.User{UserID: id, AuthProviders: providers},
		creationMS: creationMS,
	})
}

func (f *fakeSource) addVisit(userID, deviceID string, tsMS int64, userAgent string) {
	f.visits = append(f.visits, models.ActivityRecord{
		UserID:      userID,
		DeviceID:    deviceID,
		TimestampMS: tsMS,
		UserAgent:   userAgent,
	})
}

func (f *fakeSource) NewUsers(_ context.Context, startMS, stopMS int64) ([]models.User, error) {
	var users []models.User
	for _, reg := range f.registrations {
		if reg.creationMS < startMS || reg.creationMS >= stopMS {
			continue
		}
		for _, v := range f.visits {
			if v.UserID == reg.user.UserID && v.TimestampMS >= startMS && v.TimestampMS < stopMS {
				users = append(users, reg.user)
				break
			}
		}
	}
	return users, nil
}

func (f *fakeSource) ActiveDevices(_ context.Context, users []string, startMS, stopMS int64) ([]store.UserDevice, error) {
	wanted := make(map[string]bool, len(users))
	for _, u := range users {
		wanted[u] = true
	}

	seen := make(map[string]bool)
	var devices []store.UserDevice
	for _, v := range f.visits {
		if !wanted[v.UserID] || v.TimestampMS < startMS || v.TimestampMS >= stopMS {
			continue
		}
		key := models.DeviceKey(v.UserID, v.DeviceID)
		if seen[key] {
			continue
		}
		seen[key] = true
		devices = append(devices, store.UserDevice{UserID: v.UserID, DeviceID: v.DeviceID})
	}
	return devices, nil
}

func (f *fakeSource) DeviceUserAgents(_ context.Context, users []string, sinceMS int64) ([]store.DeviceAgent, error) {
	wanted := make(map[string]bool, len(users))
	for _, u := range users {
		wanted[u] = true
	}

	seen := make(map[store.DeviceAgent]bool)
	var agents []store.DeviceAgent
	for _, v := range f.visits {
		if !wanted[v.UserID] || v.TimestampMS < sinceMS {
			continue
		}
		a := store.DeviceAgent{UserID: v.UserID, DeviceID: v.DeviceID, UserAgent: v.UserAgent}
		if seen[a] {
			continue
		}
		seen[a] = true
		agents = append(agents, a)
	}
	return agents, nil
}

func (f *fakeSource) R30Count(context.Context, string) (int, error) {
	return 0, nil
}

func (f *fakeSource) R30ByClient(context.Context, string) (map[models.ClientType]int, error) {
	return nil, nil
}
