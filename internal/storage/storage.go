// Package storage keeps per-guild bot state (playback defaults, command
// history) in a JSON-file datastore keyed by guild id.
package storage

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/keshon/datastore"
)

const commandHistoryLimit = 20

// DefaultVolume is the volume percent applied to guilds without a stored
// preference.
const DefaultVolume = 100

type Storage struct {
	ds *datastore.DataStore
}

// GuildSettings are the playback defaults a session is created with.
type GuildSettings struct {
	DefaultVolume int  `json:"default_volume"`
	Notifications bool `json:"notifications"`
}

// CommandHistoryRecord is one logged command invocation.
type CommandHistoryRecord struct {
	ChannelID string    `json:"channel_id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Command   string    `json:"command"`
	Param     string    `json:"param"`
	Datetime  time.Time `json:"datetime"`
}

// Record is everything stored for one guild.
type Record struct {
	Settings            *GuildSettings         `json:"settings,omitempty"`
	CommandsHistoryList []CommandHistoryRecord `json:"cmd_history"`
}

func New(filePath string) (*Storage, error) {
	ds, err := datastore.New(filePath)
	if err != nil {
		return nil, err
	}
	return &Storage{ds: ds}, nil
}

func (s *Storage) Close() error {
	return s.ds.Close()
}

func (s *Storage) getOrCreateGuildRecord(guildID string) (*Record, error) {
	data, exists := s.ds.Get(guildID)
	if !exists {
		newRecord := &Record{
			CommandsHistoryList: []CommandHistoryRecord{},
		}
		s.ds.Add(guildID, newRecord)
		return newRecord, nil
	}

	jsonData, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("error marshalling data: %w", err)
	}

	var record Record
	if err := json.Unmarshal(jsonData, &record); err != nil {
		return nil, fmt.Errorf("error unmarshalling to *Record: %w", err)
	}

	if len(record.CommandsHistoryList) > commandHistoryLimit {
		record.CommandsHistoryList = record.CommandsHistoryList[len(record.CommandsHistoryList)-commandHistoryLimit:]
	}

	return &record, nil
}

// GetGuildSettings returns the guild's playback defaults, falling back to
// full volume with notifications on.
func (s *Storage) GetGuildSettings(guildID string) (GuildSettings, error) {
	record, err := s.getOrCreateGuildRecord(guildID)
	if err != nil {
		return GuildSettings{DefaultVolume: DefaultVolume, Notifications: true}, err
	}
	if record.Settings == nil {
		return GuildSettings{DefaultVolume: DefaultVolume, Notifications: true}, nil
	}
	settings := *record.Settings
	if settings.DefaultVolume <= 0 || settings.DefaultVolume > 100 {
		settings.DefaultVolume = DefaultVolume
	}
	return settings, nil
}

// SetDefaultVolume stores the guild's default volume percent.
func (s *Storage) SetDefaultVolume(guildID string, percent int) error {
	record, err := s.getOrCreateGuildRecord(guildID)
	if err != nil {
		return err
	}
	if record.Settings == nil {
		record.Settings = &GuildSettings{DefaultVolume: DefaultVolume, Notifications: true}
	}
	record.Settings.DefaultVolume = percent
	s.ds.Add(guildID, record)
	return nil
}

// SetNotifications stores whether the guild wants now-playing announcements.
func (s *Storage) SetNotifications(guildID string, enabled bool) error {
	record, err := s.getOrCreateGuildRecord(guildID)
	if err != nil {
		return err
	}
	if record.Settings == nil {
		record.Settings = &GuildSettings{DefaultVolume: DefaultVolume, Notifications: true}
	}
	record.Settings.Notifications = enabled
	s.ds.Add(guildID, record)
	return nil
}

// AppendCommandToHistory appends a command history record for a guild.
func (s *Storage) AppendCommandToHistory(guildID string, command CommandHistoryRecord) error {
	record, err := s.getOrCreateGuildRecord(guildID)
	if err != nil {
		return err
	}

	record.CommandsHistoryList = append(record.CommandsHistoryList, command)
	s.ds.Add(guildID, record)
	return nil
}

// FetchCommandHistory returns the guild's recent command invocations.
func (s *Storage) FetchCommandHistory(guildID string) ([]CommandHistoryRecord, error) {
	record, err := s.getOrCreateGuildRecord(guildID)
	if err != nil {
		return nil, err
	}
	return record.CommandsHistoryList, nil
}
