package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"github.com/decker502/armature/pkg/app"
	"github.com/decker502/armature/pkg/config"
)

const slimeXML = `<?xml version="1.0" encoding="UTF-8"?>
<skeleton name="slime" frameRate="24" version="1.5">
  <armatures>
    <armature name="slime">
      <b name="body" x="0" y="0" kX="0" kY="0" cX="1" cY="1" z="0">
        <d name="slime.png"/>
      </b>
    </armature>
  </armatures>
  <animations>
    <animation name="slime">
      <mov name="bounce" dr="8" to="0" drTW="8" lp="1" twE="NaN">
        <b name="body" sc="1" dl="0">
          <f x="0" y="0" kX="0" kY="0" cX="1" cY="1" z="0" dr="8" dI="0"/>
        </b>
      </mov>
    </animation>
  </animations>
  <TextureAtlas name="slime" width="32" height="32">
    <SubTexture name="slime.png" width="32" height="32" pX="16" pY="16"/>
  </TextureAtlas>
</skeleton>`

func newTestServer(t *testing.T) (*app.App, func(method, target string) (int, []byte)) {
	t.Helper()
	root := t.TempDir()
	for _, name := range []string{"slime.xml", "blob.xml"} {
		if err := os.WriteFile(filepath.Join(root, name), []byte(slimeXML), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	cfg := config.Default()
	cfg.AssetRoot = root
	cfg.Verbose = true
	cfg.Documents = []config.DocumentConfig{{Path: "slime.xml"}}

	a, err := app.New(cfg)
	if err != nil {
		t.Fatalf("app.New failed: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	if err := a.LoadDocuments(); err != nil {
		t.Fatalf("LoadDocuments failed: %v", err)
	}

	srv := NewServer(a, false)
	do := func(method, target string) (int, []byte) {
		t.Helper()
		resp, err := srv.Test(httptest.NewRequest(method, target, nil))
		if err != nil {
			t.Fatalf("%s %s: %v", method, target, err)
		}
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			t.Fatal(err)
		}
		return resp.StatusCode, body
	}
	return a, do
}

func TestRoutes_Registry(t *testing.T) {
	_, do := newTestServer(t)

	tests := []struct {
		name   string
		target string
		status int
	}{
		{"liveness", "/health/live", http.StatusOK},
		{"readiness", "/health/ready", http.StatusOK},
		{"armature list", "/armatures", http.StatusOK},
		{"armature", "/armatures/slime", http.StatusOK},
		{"missing armature", "/armatures/none", http.StatusNotFound},
		{"animation", "/animations/slime", http.StatusOK},
		{"movement", "/animations/slime/movements/bounce", http.StatusOK},
		{"missing movement", "/animations/slime/movements/none", http.StatusNotFound},
		{"texture", "/textures/slime.png", http.StatusOK},
		{"missing texture", "/textures/none.png", http.StatusNotFound},
		{"documents", "/documents", http.StatusOK},
		{"frames", "/frames", http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := do(http.MethodGet, tt.target)
			if status != tt.status {
				t.Errorf("status = %d, want %d (body %s)", status, tt.status, body)
			}
		})
	}

	_, body := do(http.MethodGet, "/armatures")
	var names []string
	if err := json.Unmarshal(body, &names); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(names, []string{"slime"}) {
		t.Errorf("armatures = %v, want [slime]", names)
	}

	_, body = do(http.MethodGet, "/animations/slime")
	var anim struct {
		Name      string   `json:"name"`
		Movements []string `json:"movements"`
	}
	if err := json.Unmarshal(body, &anim); err != nil {
		t.Fatal(err)
	}
	if anim.Name != "slime" || !reflect.DeepEqual(anim.Movements, []string{"bounce"}) {
		t.Errorf("animation = %+v", anim)
	}
}

func TestRoutes_Documents(t *testing.T) {
	a, do := newTestServer(t)

	if status, _ := do(http.MethodPost, "/documents"); status != http.StatusBadRequest {
		t.Errorf("POST without path: status = %d, want 400", status)
	}
	if status, _ := do(http.MethodPost, "/documents?path=blob.xml"); status != http.StatusAccepted {
		t.Fatalf("POST: status = %d, want 202", status)
	}

	deadline := time.Now().Add(5 * time.Second)
	for a.Reader.InFlight() > 0 {
		if time.Now().After(deadline) {
			t.Fatal("Timed out waiting for async load")
		}
		a.Update(1.0 / 60)
		time.Sleep(2 * time.Millisecond)
	}

	_, body := do(http.MethodGet, "/documents")
	var docs []string
	if err := json.Unmarshal(body, &docs); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(docs, []string{"blob.xml", "slime.xml"}) {
		t.Errorf("documents = %v", docs)
	}

	status, body := do(http.MethodDelete, "/documents?path=./slime.xml")
	if status != http.StatusOK {
		t.Fatalf("DELETE: status = %d, want 200", status)
	}
	var removed struct {
		Removed int `json:"removed"`
	}
	if err := json.Unmarshal(body, &removed); err != nil {
		t.Fatal(err)
	}
	// slime.xml 与 blob.xml 注册同名数据，后加载的 blob.xml 持有全部条目
	if removed.Removed != 0 {
		t.Errorf("removed = %d, want 0", removed.Removed)
	}
	if a.Reader.IsLoaded("slime.xml") {
		t.Error("Expected slime.xml to be forgotten")
	}

	status, body = do(http.MethodDelete, "/documents?path=blob.xml")
	if status != http.StatusOK {
		t.Fatalf("DELETE: status = %d", status)
	}
	if err := json.Unmarshal(body, &removed); err != nil {
		t.Fatal(err)
	}
	if removed.Removed != 3 {
		t.Errorf("removed = %d, want 3", removed.Removed)
	}
	if status, _ := do(http.MethodGet, "/armatures/slime"); status != http.StatusNotFound {
		t.Errorf("armature after removal: status = %d, want 404", status)
	}
}
