// Command callsim drives a scripted conversation against a running server,
// posting the same form fields Twilio sends. Useful for checking the full
// washing-machine flow end to end without placing a real call.
package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"
)

var sayPattern = regexp.MustCompile(`<(?:Say[^>]*|Play)>([^<]+)</(?:Say|Play)>`)

func main() {
	base := flag.String("base", "http://localhost:8080", "server base URL")
	from := flag.String("from", "+15551234567", "caller phone number")
	flag.Parse()

	callSID := fmt.Sprintf("CAsim%d", time.Now().UnixNano())
	client := &http.Client{Timeout: 15 * time.Second}

	// Answer the call.
	greeting, err := post(client, *base+"/voice", url.Values{
		"CallSid": {callSID},
		"From":    {*from},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "voice webhook failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("assistant: %s\n", spokenText(greeting))

	script := []string{
		"I have a problem with my washing machine",
		"29 Port Richmond Avenue",
		"Yes that's correct",
	}
	if args := flag.Args(); len(args) > 0 {
		script = args
	}

	for _, line := range script {
		fmt.Printf("caller:    %s\n", line)
		body, err := post(client, *base+"/handle-speech/"+callSID, url.Values{
			"SpeechResult": {line},
			"From":         {*from},
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "speech webhook failed: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("assistant: %s\n", spokenText(body))
	}
}

func post(client *http.Client, target string, form url.Values) (string, error) {
	resp, err := client.PostForm(target, form)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return string(body), nil
}

// spokenText pulls the spoken line out of the TwiML so the transcript reads
// like a conversation instead of XML.
func spokenText(twiml string) string {
	if m := sayPattern.FindStringSubmatch(twiml); m != nil {
		return strings.TrimSpace(m[1])
	}
	return strings.TrimSpace(twiml)
}
