package ai

import (
	"reflect"
	"strings"

	"github.com/anoixa/eatinator/utils/logger"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"
)

// 支持的语言
const (
	LangEnglish = "en"
	LangGerman  = "de"
	LangFrench  = "fr"
)

// MenuItem 菜单中的一道菜
type MenuItem struct {
	Name string `mapstructure:"name" json:"name"`
}

// ChatContext 提问时附带的菜单上下文
type ChatContext struct {
	Language   string     `mapstructure:"language" json:"language"`
	Restaurant string     `mapstructure:"restaurant" json:"restaurant"`
	Date       string     `mapstructure:"date" json:"date"`
	Category   string     `mapstructure:"category" json:"category"`
	Items      []MenuItem `mapstructure:"items" json:"items"`
}

// DefaultContext 缺省上下文
func DefaultContext() ChatContext {
	return ChatContext{
		Language:   LangEnglish,
		Restaurant: "Restaurant",
		Category:   "lunch",
	}
}

// DecodeContext 从请求中的 context 对象解析，未知字段丢弃，解析失败时回退到缺省值
func DecodeContext(raw map[string]interface{}) ChatContext {
	cc := DefaultContext()
	if len(raw) == 0 {
		return cc
	}

	var md mapstructure.Metadata
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Metadata:         &md,
		Result:           &cc,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.DecodeHookFuncType(menuItemHook),
	})
	if err != nil {
		logger.Warn("[AI] Failed to build context decoder", zap.Error(err))
		return DefaultContext()
	}
	if err := decoder.Decode(raw); err != nil {
		logger.Debug("[AI] Invalid context, using defaults", zap.Error(err))
		return DefaultContext()
	}
	if len(md.Unused) > 0 {
		logger.Debug("[AI] Ignored context fields", zap.Strings("fields", md.Unused))
	}

	return cc.normalize()
}

// menuItemHook 允许 items 直接是字符串数组
func menuItemHook(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
	if to != reflect.TypeOf(MenuItem{}) || from.Kind() != reflect.String {
		return data, nil
	}
	return map[string]interface{}{"name": data}, nil
}

func (c ChatContext) normalize() ChatContext {
	def := DefaultContext()
	c.Language = strings.ToLower(strings.TrimSpace(c.Language))
	switch c.Language {
	case LangGerman, LangFrench, LangEnglish:
	default:
		c.Language = def.Language
	}
	if strings.TrimSpace(c.Restaurant) == "" {
		c.Restaurant = def.Restaurant
	}
	if strings.TrimSpace(c.Category) == "" {
		c.Category = def.Category
	}

	items := c.Items[:0]
	for _, item := range c.Items {
		if name := strings.TrimSpace(item.Name); name != "" {
			items = append(items, MenuItem{Name: name})
		}
	}
	c.Items = items
	return c
}

func (c ChatContext) itemNames() []string {
	names := make([]string, len(c.Items))
	for i, item := range c.Items {
		names[i] = item.Name
	}
	return names
}
