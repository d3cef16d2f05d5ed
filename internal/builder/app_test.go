package builder

import (
	"path/filepath"
	"testing"

	"github.com/shouni/go-storyboard-kit/pkg/config"
)

func TestNewAppContext(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.DataDir = filepath.Join(t.TempDir(), "nested", "data")

	app, err := NewAppContext(cfg)
	if err != nil {
		t.Fatalf("NewAppContext() error = %v", err)
	}
	defer app.Close()

	script, err := app.Manager.CreateScript("t", "body")
	if err != nil {
		t.Fatalf("CreateScript() error = %v", err)
	}

	// 同じデータディレクトリを開き直しても内容が残っている
	if err := app.Close(); err != nil {
		t.Fatal(err)
	}
	reopened, err := NewAppContext(cfg)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer reopened.Close()

	got, err := reopened.Records.GetScript(script.ID)
	if err != nil || got.Title != "t" {
		t.Errorf("GetScript() = %+v, %v", got, err)
	}
}
