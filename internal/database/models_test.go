package database

import (
	"testing"

	"gorm.io/gorm/logger"
)

func TestTableNames(t *testing.T) {
	tests := []struct {
		name  string
		model interface{ TableName() string }
		want  string
	}{
		{"ConfigEntry", ConfigEntry{}, "config"},
		{"Alert", Alert{}, "alerts"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.model.TableName(); got != tt.want {
				t.Errorf("TableName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAlert_HasThread(t *testing.T) {
	empty := ""
	ref := "1700000000.000100"

	tests := []struct {
		name      string
		threadRef *string
		want      bool
	}{
		{"nil thread ref", nil, false},
		{"empty thread ref", &empty, false},
		{"set thread ref", &ref, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &Alert{ThreadRef: tt.threadRef}
			if got := a.HasThread(); got != tt.want {
				t.Errorf("HasThread() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConnect_SQLiteMemory(t *testing.T) {
	db, err := Connect("sqlite://:memory:", logger.Silent)
	if err != nil {
		t.Fatalf("Connect() error: %v", err)
	}
	defer Close(db)

	// Every new connection to :memory: is a fresh database
	sqlDB, _ := db.DB()
	sqlDB.SetMaxOpenConns(1)

	if err := AutoMigrate(db); err != nil {
		t.Fatalf("AutoMigrate() error: %v", err)
	}

	if !db.Migrator().HasTable("config") {
		t.Error("expected config table")
	}
	if !db.Migrator().HasTable("alerts") {
		t.Error("expected alerts table")
	}
}

func TestDialectorFor(t *testing.T) {
	tests := []struct {
		name     string
		dsn      string
		wantName string
		wantErr  bool
	}{
		{"postgres", "postgres://u:p@localhost:5432/pulse?sslmode=disable", "postgres", false},
		{"postgresql", "postgresql://u:p@localhost/pulse", "postgres", false},
		{"sqlite memory", ":memory:", "sqlite", false},
		{"sqlite prefixed", "sqlite://:memory:", "sqlite", false},
		{"empty", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := dialectorFor(tt.dsn)
			if (err != nil) != tt.wantErr {
				t.Fatalf("dialectorFor(%q) error = %v, wantErr %v", tt.dsn, err, tt.wantErr)
			}
			if err == nil && d.Name() != tt.wantName {
				t.Errorf("dialectorFor(%q).Name() = %q, want %q", tt.dsn, d.Name(), tt.wantName)
			}
		})
	}
}
