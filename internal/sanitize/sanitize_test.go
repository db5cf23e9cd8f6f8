package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestText(t *testing.T) {
	cases := map[string]string{
		"":                                   "",
		"  Guantes de nitrilo  ":             "Guantes de nitrilo",
		"<b>Bisturí</b> #11":                 "Bisturí #11",
		`<script>alert(1)</script>Jeringa`:   "Jeringa",
		"Gasas & vendas":                     "Gasas & vendas",
		`<img src=x onerror="alert(1)">Foto`: "Foto",
		"Mascarilla O'Neil":                  "Mascarilla O'Neil",
	}
	for in, want := range cases {
		assert.Equal(t, want, Text(in), "input %q", in)
	}
}

func TestText_EncodedMarkupStaysEncoded(t *testing.T) {
	for _, in := range []string{
		"&lt;img src=x onerror=alert(1)&gt;",
		"&amp;lt;script&amp;gt;alert(1)&amp;lt;/script&amp;gt;",
		"&#60;b&#62;negrita&#60;/b&#62;",
	} {
		out := Text(in)
		assert.NotContains(t, out, "<", "input %q", in)
		assert.NotContains(t, out, ">", "input %q", in)
	}
	assert.Equal(t, "&lt;img src=x onerror=alert(1)&gt;", Text("&lt;img src=x onerror=alert(1)&gt;"))
}

func TestTags(t *testing.T) {
	assert.Equal(t, "quirúrgico, Estéril", Tags("quirúrgico, , Estéril,QUIRÚRGICO,<i>estéril</i>"))
	assert.Equal(t, "", Tags(" , ,"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "Ñandú", Truncate("Ñandú", 5))
	assert.Equal(t, "Ñan", Truncate("Ñandú", 3))
	assert.Equal(t, "abc", Truncate("abc", 0))
}
