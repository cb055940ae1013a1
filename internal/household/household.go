// Package household provisions roommates and supplies from a YAML file.
// It is the only way accounts are created; the HTTP surface never does.
package household

import (
	"context"
	"crypto/rand"
	"database/sql"
	"fmt"
	"math/big"
	"os"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"

	"github.com/piso3/piso/internal/model"
	"github.com/piso3/piso/internal/store"
)

// File is the household description read by the init command.
type File struct {
	Roommates []Roommate `yaml:"roommates"`
	Supplies  []Supply   `yaml:"supplies"`
}

// Roommate describes one account. An empty password is generated.
type Roommate struct {
	Name             string `yaml:"name"`
	Email            string `yaml:"email"`
	Username         string `yaml:"username"`
	Password         string `yaml:"password"`
	Admin            bool   `yaml:"admin"`
	NotificationDays *int   `yaml:"notification_days"`
}

// Supply describes a rotating supply. The roster lists usernames in turn
// order; the holder defaults to the first of them.
type Supply struct {
	Name         string   `yaml:"name"`
	Category     string   `yaml:"category"`
	DurationDays int      `yaml:"duration_days"`
	Roster       []string `yaml:"roster"`
	Holder       string   `yaml:"holder"`
}

// Credential is a provisioned login, printed once by the init command.
type Credential struct {
	Username  string
	Password  string
	Generated bool
}

// Load reads and parses a household file.
func Load(path string) (*File, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading household file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(buf, &f); err != nil {
		return nil, fmt.Errorf("parsing household file %s: %w", path, err)
	}
	if len(f.Roommates) == 0 {
		return nil, fmt.Errorf("household file %s lists no roommates", path)
	}
	return &f, nil
}

// Apply creates every roommate and supply in f.
func Apply(ctx context.Context, db *sql.DB, f *File) ([]Credential, error) {
	ids := make(map[string]int64, len(f.Roommates))
	creds := make([]Credential, 0, len(f.Roommates))

	for _, r := range f.Roommates {
		cred := Credential{Username: r.Username, Password: r.Password}
		if cred.Password == "" {
			password, err := generatePassword(16)
			if err != nil {
				return nil, fmt.Errorf("generating password: %w", err)
			}
			cred.Password, cred.Generated = password, true
		}
		if err := model.ValidatePassword(cred.Password); err != nil {
			return nil, fmt.Errorf("roommate %s: %w", r.Username, err)
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(cred.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("hashing password: %w", err)
		}

		days := model.DefaultNotificationDays
		if r.NotificationDays != nil {
			days = *r.NotificationDays
		}

		created, err := store.CreateRoommate(ctx, db, model.Roommate{
			Name:             r.Name,
			Email:            r.Email,
			Username:         r.Username,
			PasswordHash:     string(hash),
			IsAdmin:          r.Admin,
			NotificationDays: days,
		})
		if err != nil {
			return nil, fmt.Errorf("roommate %s: %w", r.Username, err)
		}
		ids[r.Username] = created.ID
		creds = append(creds, cred)
	}

	for _, s := range f.Supplies {
		roster := make([]int64, 0, len(s.Roster))
		for _, username := range s.Roster {
			id, ok := ids[username]
			if !ok {
				return nil, fmt.Errorf("supply %s: unknown roommate %q in roster", s.Name, username)
			}
			roster = append(roster, id)
		}

		holder := s.Holder
		if holder == "" && len(s.Roster) > 0 {
			holder = s.Roster[0]
		}

		if _, err := store.CreateSupply(ctx, db, model.Supply{
			Name:            s.Name,
			Category:        s.Category,
			DurationDays:    s.DurationDays,
			Roster:          roster,
			CurrentHolderID: ids[holder],
		}); err != nil {
			return nil, fmt.Errorf("supply %s: %w", s.Name, err)
		}
	}

	return creds, nil
}

// generatePassword creates a random password of the given length.
func generatePassword(length int) (string, error) {
	const charset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789!@#$%&*"
	result := make([]byte, length)
	for i := range result {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		if err != nil {
			return "", err
		}
		result[i] = charset[n.Int64()]
	}
	return string(result), nil
}
