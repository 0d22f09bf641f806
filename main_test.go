package main

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
)

func TestParseCLIFlagsPriority(t *testing.T) {
	t.Setenv("THUMBHUB_CONFIG", "/tmp/env.toml")

	opts, err := parseCLIFlags([]string{})
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if opts.configPath != "/tmp/env.toml" {
		t.Fatalf("应优先使用环境变量，得到 %s", opts.configPath)
	}

	opts, err = parseCLIFlags([]string{"--config", "/tmp/flag.toml", "-catalog", "lights", "-limit", "5", "-serve"})
	if err != nil {
		t.Fatalf("解析失败: %v", err)
	}
	if opts.configPath != "/tmp/flag.toml" {
		t.Fatalf("flag 应高于环境变量，得到 %s", opts.configPath)
	}
	if opts.catalog != "lights" || opts.limit != 5 || !opts.serve {
		t.Fatalf("unexpected options: %+v", opts)
	}
}

func TestParseCLIFlagsRejectsNegativeLimit(t *testing.T) {
	if _, err := parseCLIFlags([]string{"-limit", "-1"}); err == nil {
		t.Fatalf("负数 limit 应报错")
	}
}

func TestRunCheckConfigSuccess(t *testing.T) {
	useBufferWriters(t)
	code := run(cliOptions{configPath: configFixture(t, "valid.toml"), checkOnly: true})
	if code != 0 {
		t.Fatalf("期望退出码 0，得到 %d", code)
	}
}

func TestRunCheckConfigFailure(t *testing.T) {
	useBufferWriters(t)
	code := run(cliOptions{configPath: configFixture(t, "missing.toml"), checkOnly: true})
	if code == 0 {
		t.Fatalf("无效配置应返回非零退出码")
	}
}

func TestRunVersionOutput(t *testing.T) {
	useBufferWriters(t)
	code := run(cliOptions{showVersion: true})
	if code != 0 {
		t.Fatalf("version 模式应成功退出，得到 %d", code)
	}
	if !strings.Contains(stdOutBuffer().String(), "thumbhub") {
		t.Fatalf("version 输出应包含 thumbhub 标识")
	}
}

func TestRunSyncPopulatesCache(t *testing.T) {
	payload := []byte("\x89PNG fake thumbnail")
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/lights":
			_, _ = w.Write([]byte(`{"results":[{"id":"a","name":"A"},{"id":"b","name":"B"},{"id":"c","name":"C"}]}`))
		case r.URL.Path == "/api/lights/c/thumbnail":
			http.Error(w, "gone", http.StatusNotFound)
		case strings.HasSuffix(r.URL.Path, "/thumbnail"):
			w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
			_, _ = w.Write(payload)
		default:
			http.NotFound(w, r)
		}
	}))
	defer upstream.Close()

	root := t.TempDir()
	configPath := writeConfigFile(t, fmt.Sprintf(`
CacheRoot = "%s"

[[Catalog]]
Name = "lights"
Kind = "light"
BaseURL = "%s/api/lights"
Limit = 9
`, filepath.ToSlash(root), upstream.URL))

	useBufferWriters(t)
	code := run(cliOptions{configPath: configPath})
	if code != 0 {
		t.Fatalf("同步应成功，得到 %d: %s", code, stdErrBuffer().String())
	}

	for _, id := range []string{"a", "b"} {
		data, err := os.ReadFile(filepath.Join(root, "lights", id+".png"))
		if err != nil {
			t.Fatalf("缺少缓存文件 %s: %v", id, err)
		}
		if string(data) != string(payload) {
			t.Fatalf("缓存内容不一致: %q", data)
		}
	}
	if _, err := os.Stat(filepath.Join(root, "lights", "c.png")); !os.IsNotExist(err) {
		t.Fatalf("失败的记录不应留下文件, err=%v", err)
	}
	if out := stdOutBuffer().String(); !strings.Contains(out, "lights: total=3 hits=0 fetched=2 failed=1") {
		t.Fatalf("unexpected summary: %s", out)
	}
}

func TestRunSyncUnknownCatalog(t *testing.T) {
	useBufferWriters(t)
	code := run(cliOptions{configPath: configFixture(t, "valid.toml"), catalog: "textures"})
	if code == 0 {
		t.Fatalf("未配置的目录应返回非零退出码")
	}
}

func TestRunSyncListingFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer upstream.Close()

	configPath := writeConfigFile(t, fmt.Sprintf(`
CacheRoot = "%s"

[[Catalog]]
Name = "materials"
Kind = "material"
BaseURL = "%s/api/materials"
`, filepath.ToSlash(t.TempDir()), upstream.URL))

	useBufferWriters(t)
	if code := run(cliOptions{configPath: configPath}); code == 0 {
		t.Fatalf("目录列表失败应返回非零退出码")
	}
}
