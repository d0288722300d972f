package voice

// PlayBehavior controls how a play directive affects the device queue.
type PlayBehavior string

// Play behaviours.
const (
	ReplaceAll PlayBehavior = "REPLACE_ALL"
	Enqueue    PlayBehavior = "ENQUEUE"
)

// DirectiveType names an outbound directive.
type DirectiveType string

// Directive types.
const (
	DirectivePlay DirectiveType = "AudioPlayer.Play"
	DirectiveStop DirectiveType = "AudioPlayer.Stop"
)

// Image is a single-source display image.
type Image struct {
	URL    string
	Width  int
	Height int
}

// Metadata is shown by devices with a screen while a stream plays.
type Metadata struct {
	Title      string
	Subtitle   string
	Art        *Image
	Background *Image
}

// AudioItem is the stream a play directive starts or enqueues.
type AudioItem struct {
	URL                   string
	Token                 string
	ExpectedPreviousToken string
	OffsetMillis          int64
	Metadata              *Metadata
}

// Directive is an instruction to the device player.
type Directive struct {
	Type     DirectiveType
	Behavior PlayBehavior
	Audio    *AudioItem
}

// PlayDirective builds an AudioPlayer.Play directive.
func PlayDirective(behavior PlayBehavior, item AudioItem) Directive {
	return Directive{Type: DirectivePlay, Behavior: behavior, Audio: &item}
}

// StopDirective builds an AudioPlayer.Stop directive.
func StopDirective() Directive {
	return Directive{Type: DirectiveStop}
}

// Response is what a handler answers: optional speech, an optional
// reprompt that keeps the microphone open, and device directives.
// Speech is plain text and is sanitised when rendered.
type Response struct {
	Speech     string
	Reprompt   string
	Directives []Directive
	EndSession *bool
}

// Empty reports whether the response carries nothing.
func (r Response) Empty() bool {
	return r.Speech == "" && r.Reprompt == "" && len(r.Directives) == 0 && r.EndSession == nil
}

// Speak returns a response that only speaks text.
func Speak(text string) Response {
	return Response{Speech: text}
}

// Ask returns a response that speaks text and waits for an answer.
func Ask(text, reprompt string) Response {
	return Response{Speech: text, Reprompt: reprompt}
}

// Bool returns a pointer to b.
func Bool(b bool) *bool {
	return &b
}

// ResponseEnvelope is the JSON document returned to the platform.
type ResponseEnvelope struct {
	Version  string       `json:"version"`
	Response responseBody `json:"response"`
}

type responseBody struct {
	OutputSpeech     *outputSpeech   `json:"outputSpeech,omitempty"`
	Reprompt         *reprompt       `json:"reprompt,omitempty"`
	Directives       []directiveJSON `json:"directives,omitempty"`
	ShouldEndSession *bool           `json:"shouldEndSession,omitempty"`
}

type outputSpeech struct {
	Type string `json:"type"`
	SSML string `json:"ssml"`
}

type reprompt struct {
	OutputSpeech outputSpeech `json:"outputSpeech"`
}

type directiveJSON struct {
	Type         string         `json:"type"`
	PlayBehavior string         `json:"playBehavior,omitempty"`
	AudioItem    *audioItemJSON `json:"audioItem,omitempty"`
}

type audioItemJSON struct {
	Stream   streamJSON    `json:"stream"`
	Metadata *metadataJSON `json:"metadata,omitempty"`
}

type streamJSON struct {
	URL                   string `json:"url"`
	Token                 string `json:"token"`
	ExpectedPreviousToken string `json:"expectedPreviousToken,omitempty"`
	OffsetInMilliseconds  int64  `json:"offsetInMilliseconds"`
}

type metadataJSON struct {
	Title           string     `json:"title,omitempty"`
	Subtitle        string     `json:"subtitle,omitempty"`
	Art             *imageJSON `json:"art,omitempty"`
	BackgroundImage *imageJSON `json:"backgroundImage,omitempty"`
}

type imageJSON struct {
	Sources []imageSource `json:"sources"`
}

type imageSource struct {
	URL          string `json:"url"`
	WidthPixels  int    `json:"widthPixels,omitempty"`
	HeightPixels int    `json:"heightPixels,omitempty"`
}

// Envelope renders the response in the platform wire format.
func (r Response) Envelope() ResponseEnvelope {
	body := responseBody{ShouldEndSession: r.EndSession}

	if r.Speech != "" {
		body.OutputSpeech = ssml(r.Speech)
	}
	if r.Reprompt != "" {
		body.Reprompt = &reprompt{OutputSpeech: *ssml(r.Reprompt)}
		if body.ShouldEndSession == nil {
			body.ShouldEndSession = Bool(false)
		}
	}

	for _, d := range r.Directives {
		dj := directiveJSON{Type: string(d.Type), PlayBehavior: string(d.Behavior)}
		if d.Audio != nil {
			dj.AudioItem = &audioItemJSON{
				Stream: streamJSON{
					URL:                   d.Audio.URL,
					Token:                 d.Audio.Token,
					ExpectedPreviousToken: d.Audio.ExpectedPreviousToken,
					OffsetInMilliseconds:  d.Audio.OffsetMillis,
				},
				Metadata: metadata(d.Audio.Metadata),
			}
		}
		body.Directives = append(body.Directives, dj)
	}

	return ResponseEnvelope{Version: "1.0", Response: body}
}

func ssml(text string) *outputSpeech {
	return &outputSpeech{Type: "SSML", SSML: "<speak>" + Sanitize(text) + "</speak>"}
}

func metadata(m *Metadata) *metadataJSON {
	if m == nil {
		return nil
	}
	return &metadataJSON{
		Title:           m.Title,
		Subtitle:        m.Subtitle,
		Art:             image(m.Art),
		BackgroundImage: image(m.Background),
	}
}

func image(img *Image) *imageJSON {
	if img == nil || img.URL == "" {
		return nil
	}
	return &imageJSON{Sources: []imageSource{{URL: img.URL, WidthPixels: img.Width, HeightPixels: img.Height}}}
}
