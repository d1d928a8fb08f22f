package email

import (
	"bytes"
	"fmt"
	"html/template"
	"time"
)

var otpHTML = template.Must(template.New("otp").Parse(`<!DOCTYPE html>
<html>
  <body style="font-family: Arial, sans-serif;">
    <p>Hello {{.Name}},</p>
    <p>Your one-time code is:</p>
    <p style="font-size: 24px; font-weight: bold; letter-spacing: 4px;">{{.Code}}</p>
    <p>It expires at {{.Expires}} UTC.</p>
    <p style="color: #888;">Requested on {{.Date}}</p>
  </body>
</html>
`))

type otpView struct {
	Name    string
	Code    string
	Expires string
	Date    string
}

func renderOTP(msg OTPMessage, now time.Time) (text string, html string, err error) {
	view := otpView{
		Name:    msg.Name,
		Code:    msg.Code,
		Expires: msg.ExpiresAt.UTC().Format(time.RFC3339),
		Date:    now.UTC().Format(time.RFC1123),
	}
	text = fmt.Sprintf(
		"Hello %s,\n\nYour OTP is: %s\nIt expires at %s UTC.\n",
		view.Name,
		view.Code,
		view.Expires,
	)
	var buf bytes.Buffer
	if err := otpHTML.Execute(&buf, view); err != nil {
		return "", "", err
	}
	return text, buf.String(), nil
}
