package static

import (
	"github.com/pkg/errors"
	"html"
	"os/exec"
	"runtime"
	"strings"
)

const page = `<!DOCTYPE html>
<html>
  <head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1">
    <title>__TITLE__</title>

    <style media="screen">
      body { background: #121212; color: rgba(255,255,255,0.87); font-family: Helvetica, Arial, sans-serif; margin: 0; padding: 0; }
      #message { background: #181818; max-width: 400px; margin: 100px auto 16px; padding: 32px 24px 8px; border-radius: 8px; }
      #message h1 { color: __ACCENT__; font-weight: bold; font-size: 24px; margin: 0 0 16px; }
      #message h2 { font-size: 16px; font-weight: 300; color: rgba(255,255,255,0.6); margin: 0 0 16px; }
      #message p { line-height: 140%; margin: 16px 0 24px; font-size: 14px; white-space: pre-wrap; }
      @media (max-width: 600px) {
        body, #message { margin-top: 0; box-shadow: none; }
      }
    </style>
  </head>
  <body>
    <div id="message">
      <h1>__TITLE__</h1>
      <h2>__HEADING__</h2>
      <p>__MESSAGE__</p>
    </div>
  </body>
</html>`

const (
	successAccent = "#1DB954"
	failedAccent  = "#E22134"
)

func render(title, accent, heading, message string) string {
	r := strings.NewReplacer(
		"__TITLE__", html.EscapeString(title),
		"__ACCENT__", accent,
		"__HEADING__", html.EscapeString(heading),
		"__MESSAGE__", html.EscapeString(message),
	)
	return r.Replace(page)
}

// SuccessHTML is shown once the callback has been exchanged for tokens.
func SuccessHTML(title string) string {
	return render(title, successAccent, "Login Successful", "You can close this tab and return to the terminal.")
}

// FailedHTML is shown when the callback could not be completed. reason is
// displayed verbatim (escaped) so the user knows whether to retry.
func FailedHTML(title, reason string) string {
	if reason == "" {
		reason = "Something went wrong."
	}
	return render(title, failedAccent, "Login Failed", reason)
}

// StatusHTML is the landing page for the application root.
func StatusHTML(title, state string) string {
	return render(title, successAccent, "Status", state)
}

// Open attempts an os specific opening of urls
func Open(uri string) error {
	var err error
	switch runtime.GOOS {
	case "linux":
		err = exec.Command("xdg-open", uri).Start()
	case "windows":
		err = exec.Command("rundll32", "url.dll.FileProtocolHandler", uri).Start()
	case "darwin":
		err = exec.Command("open", uri).Start()
	default:
		err = errors.New("unsupported platform, cannot open browser")
	}

	return err
}

func IsDesktop() bool {
	switch runtime.GOOS {
	case "linux", "windows", "darwin":
		return true
	}

	return false
}
