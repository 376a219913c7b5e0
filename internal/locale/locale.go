package locale

import (
	"fmt"
	"sort"
	"strings"
)

const (
	Chinese = "zh"
	English = "en"

	Default = Chinese
)

// Catalog holds every user-visible string of the client
type Catalog struct {
	Tag string

	ErrorPrefix  string // prepended to the backend's error text
	NetworkError string

	StatusUnknown     string
	StatusReady       string
	StatusDemo        string
	StatusUnreachable string

	Thinking     string
	WelcomeTitle string
	WelcomeBody  string // %s is the model name
	WelcomeHint  string
	MessageCount string // %d is the counter

	UserLabel      string
	AssistantLabel string
	InputHint      string
}

var catalogs = map[string]Catalog{
	Chinese: {
		Tag:               Chinese,
		ErrorPrefix:       "抱歉，发生了错误: ",
		NetworkError:      "网络错误，请稍后重试",
		StatusUnknown:     "正在连接",
		StatusReady:       "模型已就绪",
		StatusDemo:        "演示模式",
		StatusUnreachable: "连接失败",
		Thinking:          "AI正在思考",
		WelcomeTitle:      "🚀 欢迎使用 Unlimited Agent",
		WelcomeBody:       "这是一个基于 %s 的AI助手",
		WelcomeHint:       "开始对话，体验无限制的AI交流！",
		MessageCount:      "消息: %d",
		UserLabel:         "你",
		AssistantLabel:    "AI",
		InputHint:         "输入消息，回车发送…",
	},
	English: {
		Tag:               English,
		ErrorPrefix:       "Sorry, an error occurred: ",
		NetworkError:      "Network error, please try again later",
		StatusUnknown:     "Connecting",
		StatusReady:       "Model ready",
		StatusDemo:        "Demo mode",
		StatusUnreachable: "Connection failed",
		Thinking:          "AI is thinking",
		WelcomeTitle:      "🚀 Welcome to Unlimited Agent",
		WelcomeBody:       "An AI assistant powered by %s",
		WelcomeHint:       "Start chatting!",
		MessageCount:      "Messages: %d",
		UserLabel:         "You",
		AssistantLabel:    "AI",
		InputHint:         "Type a message, enter to send…",
	},
}

// Lookup returns the catalog for tag. Region suffixes such as "zh-CN" or
// "en_US" resolve to their base language.
func Lookup(tag string) (Catalog, error) {
	base := strings.ToLower(strings.TrimSpace(tag))
	if i := strings.IndexAny(base, "-_"); i >= 0 {
		base = base[:i]
	}
	if base == "" {
		base = Default
	}
	c, ok := catalogs[base]
	if !ok {
		return Catalog{}, fmt.Errorf("unsupported locale %q (supported: %s)", tag, strings.Join(Supported(), ", "))
	}
	return c, nil
}

// MustLookup is Lookup for tags already validated by the config layer.
func MustLookup(tag string) Catalog {
	c, err := Lookup(tag)
	if err != nil {
		panic(err)
	}
	return c
}

// Supported lists the known locale tags in sorted order.
func Supported() []string {
	tags := make([]string, 0, len(catalogs))
	for tag := range catalogs {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

func (c Catalog) Welcome(modelName string) string {
	return fmt.Sprintf(c.WelcomeBody, modelName)
}

func (c Catalog) Count(n int) string {
	return fmt.Sprintf(c.MessageCount, n)
}
