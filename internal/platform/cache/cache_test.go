package cache_test

import (
	"testing"
	"time"

	"github.com/ggproduction/onboarding/internal/platform/cache"
	"github.com/ggproduction/onboarding/internal/platform/cache/cachetest"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid-redis", "redis://localhost:6379", false},
		{"valid-with-db", "redis://localhost:6379/0", false},
		{"empty", "", true},
		{"bad-scheme", "http://localhost:6379", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := cache.ParseURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseURL() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNew_UnreachableHost(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping unreachable host test in short mode")
	}

	ctx := t.Context()
	_, err := cache.New(ctx, "redis://localhost:59999")
	if err == nil {
		t.Fatal("New() should return error for unreachable host")
	}
}

func TestCache_JSONRoundTrip(t *testing.T) {
	c := cachetest.Start(t)
	ctx := t.Context()

	type board struct {
		Names []string `json:"names"`
	}
	var got board
	found, err := c.GetJSON(ctx, "missing", &got)
	if err != nil || found {
		t.Fatalf("GetJSON(missing) = %v, %v, want false, nil", found, err)
	}

	if err := c.SetJSON(ctx, "board", board{Names: []string{"ann", "bob"}}, time.Minute); err != nil {
		t.Fatalf("SetJSON() error = %v", err)
	}
	found, err = c.GetJSON(ctx, "board", &got)
	if err != nil || !found {
		t.Fatalf("GetJSON() = %v, %v, want true, nil", found, err)
	}
	if len(got.Names) != 2 || got.Names[1] != "bob" {
		t.Errorf("GetJSON() decoded %+v", got)
	}

	if err := c.Delete(ctx, "board", "missing"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	found, _ = c.GetJSON(ctx, "board", &got)
	if found {
		t.Error("GetJSON() after Delete found the key")
	}
}
