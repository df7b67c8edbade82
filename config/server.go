package config

import (
	"fmt"
	"slices"
	"strings"

	"github.com/spf13/viper"
)

type Server struct {
	Addr         string
	PGConn       string
	ClientID     string
	ClientSecret string
	Admins       []string
	ParamsFile   string
	LogLevel     string
}

var required = []string{"pgconn", "client_id", "client_secret", "admins"}

// LoadServer reads settings from the environment (PGCONN, CLIENT_ID, ...)
// and, when file is set, from a config file. The environment wins.
func LoadServer(file string) (*Server, error) {
	v := viper.New()
	v.SetDefault("addr", ":8080")
	v.SetDefault("log_level", "info")
	for _, key := range append(slices.Clone(required), "addr", "params_file", "log_level") {
		if err := v.BindEnv(key); err != nil {
			return nil, err
		}
	}
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", file, err)
		}
	}
	for _, key := range required {
		if v.GetString(key) == "" {
			return nil, fmt.Errorf("%s is required", strings.ToUpper(key))
		}
	}

	s := &Server{
		Addr:         v.GetString("addr"),
		PGConn:       v.GetString("pgconn"),
		ClientID:     v.GetString("client_id"),
		ClientSecret: v.GetString("client_secret"),
		ParamsFile:   v.GetString("params_file"),
		LogLevel:     v.GetString("log_level"),
	}
	for _, a := range strings.Split(v.GetString("admins"), ",") {
		if a = strings.TrimSpace(a); a != "" {
			s.Admins = append(s.Admins, a)
		}
	}
	return s, nil
}

func (s *Server) IsAdmin(email string) bool {
	return slices.Contains(s.Admins, email)
}
