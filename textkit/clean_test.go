package textkit

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"carpulse/models"
)

func loadFixture(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join("testdata", name)
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read fixture %s: %v", name, err)
	}
	return string(data)
}

func TestCleanStripsBoilerplate(t *testing.T) {
	raw := loadFixture(t, "blog_basic.html")

	text, err := Clean(1, raw, "https://blog.example.com/avante")
	if err != nil {
		t.Fatalf("clean failed: %v", err)
	}

	if !strings.Contains(text, "아반떼 가격 아반떼 디자인 아반떼") {
		t.Fatalf("body text missing: %q", text)
	}
	if strings.Contains(text, "포인트 지급") {
		t.Fatalf("ad text not stripped: %q", text)
	}
	if strings.Contains(text, "Copyright") {
		t.Fatalf("footer not stripped: %q", text)
	}
	if strings.Contains(text, "dataLayer") {
		t.Fatalf("script not stripped: %q", text)
	}
	if strings.Contains(text, "\n") || strings.Contains(text, "  ") {
		t.Fatalf("whitespace not collapsed: %q", text)
	}
}

func TestCleanEmptyBodyIsValid(t *testing.T) {
	raw := loadFixture(t, "blog_empty.html")

	text, err := Clean(2, raw, "https://blog.example.com/empty")
	if err != nil {
		t.Fatalf("empty body must not be an error: %v", err)
	}
	if text != "" {
		t.Fatalf("expected empty cleaned text, got %q", text)
	}
}

func TestCleanFallbackExcludesStrippedBoilerplate(t *testing.T) {
	// a short body forces the readability fallback; stripped nav/ad text
	// must not come back through it
	raw := `<!DOCTYPE html>
<html>
<head><title>짧은 글</title></head>
<body>
<nav><a href="/">home</a><a href="/cars">cars</a></nav>
<div class="ad">포인트 지급</div>
<p>짧은 글</p>
<footer>Copyright</footer>
</body>
</html>`

	text, err := Clean(4, raw, "https://blog.example.com/short")
	if err != nil {
		t.Fatalf("clean failed: %v", err)
	}
	if strings.Contains(text, "home") || strings.Contains(text, "cars") {
		t.Fatalf("nav text leaked through fallback: %q", text)
	}
	if strings.Contains(text, "포인트 지급") {
		t.Fatalf("ad text leaked through fallback: %q", text)
	}
}

func TestCleanRejectsBinaryInput(t *testing.T) {
	_, err := Clean(3, "GIF89a\x00\x01\x02\xff\xfe", "https://blog.example.com/binary")
	var ae *models.AnalysisError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AnalysisError, got %v", err)
	}
	if ae.ArticleID != 3 {
		t.Fatalf("expected article id 3, got %d", ae.ArticleID)
	}
}
