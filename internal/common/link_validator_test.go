package common

import (
	"testing"
)

func TestScreenLinks(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{
			name:    "no links",
			content: "Liputan yang bagus, terima kasih",
			want:    "",
		},
		{
			name:    "one plain link",
			content: "Sumber lain: https://www.kompas.com/berita/123",
			want:    "",
		},
		{
			name:    "shortener",
			content: "cek ini https://bit.ly/abc123",
			want:    "shortened link",
		},
		{
			name:    "shortener subdomain",
			content: "http://go.rebrand.ly/x",
			want:    "shortened link",
		},
		{
			name:    "lookalike host is not a shortener",
			content: "https://notbit.ly.example.com/a",
			want:    "",
		},
		{
			name:    "too many links",
			content: "https://a.com https://b.com https://c.com",
			want:    "too many links",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ScreenLinks(tt.content); got != tt.want {
				t.Errorf("ScreenLinks() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestExtractLinks(t *testing.T) {
	links := ExtractLinks(`<a href="https://x.id/a">x</a> and http://y.id/b.`)
	if len(links) != 2 {
		t.Fatalf("expected 2 links, got %v", links)
	}
	if links[0] != "https://x.id/a" {
		t.Errorf("unexpected first link %q", links[0])
	}
}
