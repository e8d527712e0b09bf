package logger

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestParseLevel 测试日志级别解析
func TestParseLevel(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected slog.Level
	}{
		{"debug", "debug", slog.LevelDebug},
		{"info", "info", slog.LevelInfo},
		{"warn", "warn", slog.LevelWarn},
		{"error", "error", slog.LevelError},
		{"未知级别默认info", "unknown", slog.LevelInfo},
		{"空字符串默认info", "", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseLevel(tt.input)
			if got != tt.expected {
				t.Errorf("parseLevel(%q) = %v, 期望 %v", tt.input, got, tt.expected)
			}
		})
	}
}

// TestLevelTag 测试日志级别标签
func TestLevelTag(t *testing.T) {
	tests := []struct {
		name     string
		level    slog.Level
		expected string
	}{
		{"error", slog.LevelError, "ERROR"},
		{"warn", slog.LevelWarn, "WARN "},
		{"info", slog.LevelInfo, "INFO "},
		{"debug", slog.LevelDebug, "DEBUG"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := levelTag(tt.level)
			if got != tt.expected {
				t.Errorf("levelTag(%v) = %q, 期望 %q", tt.level, got, tt.expected)
			}
		})
	}
}

// TestFormatAttr 测试属性格式化
func TestFormatAttr(t *testing.T) {
	tests := []struct {
		name     string
		group    string
		attr     slog.Attr
		expected string
	}{
		{
			name:     "无分组",
			group:    "",
			attr:     slog.String("key", "value"),
			expected: "  key=value",
		},
		{
			name:     "有分组",
			group:    "group",
			attr:     slog.String("key", "value"),
			expected: "  group.key=value",
		},
		{
			name:     "整数值",
			group:    "",
			attr:     slog.Int("frames", 600),
			expected: "  frames=600",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := formatAttr(tt.group, tt.attr)
			if got != tt.expected {
				t.Errorf("formatAttr(%q, %v) = %q, 期望 %q", tt.group, tt.attr, got, tt.expected)
			}
		})
	}
}

// TestConsoleHandlerEnabled 测试 consoleHandler 的级别过滤
func TestConsoleHandlerEnabled(t *testing.T) {
	h := &consoleHandler{level: slog.LevelInfo}

	if !h.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("Info 级别应该被启用")
	}
	if !h.Enabled(context.Background(), slog.LevelError) {
		t.Error("Error 级别应该被启用")
	}
	if h.Enabled(context.Background(), slog.LevelDebug) {
		t.Error("Debug 级别不应该被启用")
	}
}

// TestConsoleHandlerHandle 测试 consoleHandler 的日志输出
func TestConsoleHandlerHandle(t *testing.T) {
	var buf bytes.Buffer
	h := &consoleHandler{w: &buf, level: slog.LevelDebug}

	record := slog.NewRecord(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), slog.LevelInfo, "test message", 0)
	record.AddAttrs(slog.String("key", "value"))

	err := h.Handle(context.Background(), record)
	if err != nil {
		t.Fatalf("Handle() 返回错误: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "12:00:00") {
		t.Errorf("输出应包含时间戳, 实际: %q", output)
	}
	if !strings.Contains(output, "INFO") {
		t.Errorf("输出应包含级别标签, 实际: %q", output)
	}
	if !strings.Contains(output, "test message") {
		t.Errorf("输出应包含消息, 实际: %q", output)
	}
	if !strings.Contains(output, "key=value") {
		t.Errorf("输出应包含属性, 实际: %q", output)
	}
	if !strings.HasSuffix(output, "\n") {
		t.Errorf("输出应以换行符结尾, 实际: %q", output)
	}
}

// TestConsoleHandlerWithAttrs 测试 WithAttrs 创建新 handler
func TestConsoleHandlerWithAttrs(t *testing.T) {
	var buf bytes.Buffer
	h := &consoleHandler{w: &buf, level: slog.LevelDebug}

	h2 := h.WithAttrs([]slog.Attr{slog.String("component", "sim")})

	// 原始 handler 不应该受影响
	if len(h.attrs) != 0 {
		t.Error("原始 handler 的 attrs 不应该被修改")
	}

	// 新 handler 应该有预设属性
	record := slog.NewRecord(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), slog.LevelInfo, "test", 0)
	err := h2.Handle(context.Background(), record)
	if err != nil {
		t.Fatalf("Handle() 返回错误: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "component=sim") {
		t.Errorf("输出应包含预设属性, 实际: %q", output)
	}
}

// TestConsoleHandlerWithGroup 测试 WithGroup 创建新 handler
func TestConsoleHandlerWithGroup(t *testing.T) {
	var buf bytes.Buffer
	h := &consoleHandler{w: &buf, level: slog.LevelDebug}

	h2 := h.WithGroup("web")

	record := slog.NewRecord(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), slog.LevelInfo, "test", 0)
	record.AddAttrs(slog.String("addr", "127.0.0.1"))
	err := h2.Handle(context.Background(), record)
	if err != nil {
		t.Fatalf("Handle() 返回错误: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "web.addr=127.0.0.1") {
		t.Errorf("输出应包含分组前缀, 实际: %q", output)
	}
}

// TestConsoleHandlerWithNestedGroup 测试嵌套分组
func TestConsoleHandlerWithNestedGroup(t *testing.T) {
	var buf bytes.Buffer
	h := &consoleHandler{w: &buf, level: slog.LevelDebug}

	h2 := h.WithGroup("web").WithGroup("config")

	record := slog.NewRecord(time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC), slog.LevelInfo, "test", 0)
	record.AddAttrs(slog.String("port", "25565"))
	err := h2.Handle(context.Background(), record)
	if err != nil {
		t.Fatalf("Handle() 返回错误: %v", err)
	}

	output := buf.String()
	if !strings.Contains(output, "web.config.port=25565") {
		t.Errorf("输出应包含嵌套分组前缀, 实际: %q", output)
	}
}

// TestNewHandlerFormats 测试不同格式的 handler 选择
func TestNewHandlerFormats(t *testing.T) {
	tests := []struct {
		format  string
		console bool
		marker  string
	}{
		{"json", false, `"msg":"hello"`},
		{"text", false, "msg=hello"},
		{"console", true, "INFO  hello"},
		{"", true, "INFO  hello"},
	}

	for _, tt := range tests {
		t.Run("format_"+tt.format, func(t *testing.T) {
			var buf bytes.Buffer
			handler := newHandler(tt.format, &buf, slog.LevelDebug)
			if _, ok := handler.(*consoleHandler); ok != tt.console {
				t.Fatalf("newHandler(%q) console = %v, 期望 %v", tt.format, ok, tt.console)
			}
			slog.New(handler).Info("hello", "playing", true)
			if !strings.Contains(buf.String(), tt.marker) {
				t.Errorf("输出 %q 应包含 %q", buf.String(), tt.marker)
			}
		})
	}
}

// TestInitWritesFile 测试日志同时写入文件
func TestInitWritesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "critter.log")
	var buf bytes.Buffer
	if err := Init(Config{Level: "info", Format: "console", Output: &buf, File: path}); err != nil {
		t.Fatalf("Init() 返回错误: %v", err)
	}
	t.Cleanup(func() { _ = Close() })

	L().Info("Stage built", "critters", 2)
	L().Debug("hidden")

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("读取日志文件失败: %v", err)
	}
	if !strings.Contains(string(data), "Stage built  critters=2") {
		t.Errorf("日志文件内容 %q 缺少记录", data)
	}
	if strings.Contains(buf.String(), "hidden") {
		t.Errorf("debug 日志不应输出")
	}
}
