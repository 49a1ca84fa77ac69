package config

import (
	"strings"

	"github.com/spf13/viper"

	"github.com/mmcdole/mediarr/internal/domain"
)

// Settings implements domain.SettingsProvider over viper.
// Every call reads viper again, so a saved change is seen by the next Initialize.
type Settings struct {
	v *viper.Viper
}

// GetSettings returns ok=false when neither a server url nor an api key has been saved
func (s *Settings) GetSettings() (domain.Settings, bool) {
	if s == nil || s.v == nil {
		return domain.Settings{}, false
	}
	if !s.v.IsSet("server.url") && !s.v.IsSet("server.api_key") {
		return domain.Settings{}, false
	}

	return domain.Settings{
		Type:     domain.ServerType(strings.ToLower(s.v.GetString("server.type"))),
		URL:      strings.TrimRight(s.v.GetString("server.url"), "/"),
		APIKey:   s.v.GetString("server.api_key"),
		UserID:   s.v.GetString("server.user_id"),
		ClientID: s.v.GetString("server.client_id"),
	}, true
}
