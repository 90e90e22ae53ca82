package editor

import (
	"html"
	"strconv"
	"strings"

	"pagebuilder/internal/domain"
)

// PlaceholderMarkup is rendered for an empty workspace.
const PlaceholderMarkup = `<div class="placeholder-msg">DRAG COMPONENTS HERE</div>`

// Render turns elements into workspace markup. It is a pure function of its
// input: the same elements always produce the same markup.
func Render(els []domain.Element) string {
	if len(els) == 0 {
		return PlaceholderMarkup
	}
	var b strings.Builder
	for _, el := range els {
		renderElement(&b, el)
	}
	return b.String()
}

// RenderDocument wraps the workspace markup in a standalone HTML page,
// used for previews and exported builds.
func RenderDocument(title string, els []domain.Element) string {
	var b strings.Builder
	b.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>")
	b.WriteString(html.EscapeString(title))
	b.WriteString("</title>\n<style>body{margin:0}#workspace{position:relative;min-height:100vh}.element{position:absolute;box-sizing:border-box;overflow:hidden}.element img,.element video{width:100%;height:100%;object-fit:cover}</style>\n</head>\n<body>\n<div id=\"workspace\">")
	b.WriteString(Render(els))
	b.WriteString("</div>\n</body>\n</html>\n")
	return b.String()
}

func renderElement(b *strings.Builder, el domain.Element) {
	b.WriteString(`<div class="element element-`)
	b.WriteString(html.EscapeString(string(el.Kind)))
	b.WriteString(`" data-id="`)
	b.WriteString(html.EscapeString(el.ID))
	if el.Template != "" {
		b.WriteString(`" data-template="`)
		b.WriteString(html.EscapeString(el.Template))
	}
	b.WriteString(`" style="`)
	b.WriteString(html.EscapeString(elementStyle(el)))
	b.WriteString(`">`)

	switch el.Kind {
	case domain.ElementKindImage:
		if src := mediaSource(el.Content); src != "" {
			b.WriteString(`<img src="` + html.EscapeString(src) + `" alt="">`)
		}
	case domain.ElementKindVideo:
		if src := mediaSource(el.Content); src != "" {
			b.WriteString(`<video src="` + html.EscapeString(src) + `" controls></video>`)
		}
	case domain.ElementKindButton:
		b.WriteString(`<button>` + html.EscapeString(el.Content) + `</button>`)
	default:
		b.WriteString(html.EscapeString(el.Content))
	}
	b.WriteString(`</div>`)
}

func elementStyle(el domain.Element) string {
	parts := []string{
		"left:" + px(el.X),
		"top:" + px(el.Y),
		"width:" + px(el.Width),
		"height:" + px(el.Height),
		"z-index:" + strconv.Itoa(el.ZIndex),
	}
	if v := cssValue(el.Style.Background); v != "" {
		parts = append(parts, "background:"+v)
	}
	if v := cssValue(el.Style.Padding); v != "" {
		parts = append(parts, "padding:"+v)
	}
	if v := cssValue(el.Style.Color); v != "" {
		parts = append(parts, "color:"+v)
	}
	return strings.Join(parts, ";")
}

func px(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64) + "px"
}

// cssValue drops characters that could end the declaration.
func cssValue(v string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		switch r {
		case ';', '{', '}', '<', '>', '"', '\\':
			return -1
		}
		return r
	}, v))
}

// mediaSource accepts data URIs and http(s) URLs only.
func mediaSource(v string) string {
	lower := strings.ToLower(strings.TrimSpace(v))
	if strings.HasPrefix(lower, "data:image/") || strings.HasPrefix(lower, "data:video/") ||
		strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://") {
		return strings.TrimSpace(v)
	}
	return ""
}
