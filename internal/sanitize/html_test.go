package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHTML(t *testing.T) {
	out := HTML(`<p onclick="x()">Hi <b>there</b><script>alert(1)</script></p>`)
	assert.Equal(t, `<p>Hi <b>there</b></p>`, out)
}

func TestText(t *testing.T) {
	assert.Equal(t, "Line one Line two", Text("<h1>Line one</h1>\n\n<p>Line   two</p>"))
}
