package speech

import (
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hammamikhairi/metrovox/internal/domain"
	"github.com/hammamikhairi/metrovox/internal/logger"
)

// Compile-time interface check.
var _ domain.Synthesizer = (*AzureClient)(nil)

// AzureOption configures the Azure TTS client.
type AzureOption func(*AzureClient)

// WithAudioFormat sets the audio output format. Only RIFF 16-bit mono PCM
// formats are accepted; anything else falls back to DefaultAudioFormat.
func WithAudioFormat(format string) AzureOption {
	return func(c *AzureClient) {
		c.format = format
	}
}

// WithHTTPTimeout sets the HTTP client timeout for TTS requests.
func WithHTTPTimeout(d time.Duration) AzureOption {
	return func(c *AzureClient) {
		c.httpClient.Timeout = d
	}
}

// WithEndpoint overrides the regional endpoint URL.
func WithEndpoint(url string) AzureOption {
	return func(c *AzureClient) {
		c.endpoint = url
	}
}

// AzureClient handles text-to-speech synthesis via Azure Cognitive Services.
type AzureClient struct {
	subscriptionKey string
	endpoint        string
	format          string
	sampleRate      int
	httpClient      *http.Client
	log             *logger.Logger
}

// NewAzureClient creates an Azure TTS client with the given credentials.
func NewAzureClient(key, region string, log *logger.Logger, opts ...AzureOption) *AzureClient {
	c := &AzureClient{
		subscriptionKey: key,
		endpoint:        fmt.Sprintf("https://%s.tts.speech.microsoft.com/cognitiveservices/v1", region),
		format:          DefaultAudioFormat,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		log: log,
	}
	for _, opt := range opts {
		opt(c)
	}

	rate, err := formatSampleRate(c.format)
	if err != nil {
		log.Warn("azure tts: %v, using %s", err, DefaultAudioFormat)
		c.format = DefaultAudioFormat
		rate = AzureSampleRate
	}
	c.sampleRate = rate
	return c
}

// Name identifies the backend in logs.
func (c *AzureClient) Name() string { return "azure" }

// SampleRate returns the PCM sample rate of synthesized audio.
func (c *AzureClient) SampleRate() int { return c.sampleRate }

// Synthesize converts an utterance to PCM using the given voice.
func (c *AzureClient) Synthesize(ctx context.Context, voice domain.Voice, u domain.Utterance) ([]byte, error) {
	ssml := buildSSML(voice, u)
	c.log.Debug("azure tts: synthesizing %d chars with voice %s", len([]rune(u.Text)), voice.Name)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, strings.NewReader(ssml))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Ocp-Apim-Subscription-Key", c.subscriptionKey)
	req.Header.Set("Content-Type", "application/ssml+xml")
	req.Header.Set("X-Microsoft-OutputFormat", c.format)
	req.Header.Set("User-Agent", "metrovox/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("azure tts error %d: %s", resp.StatusCode, string(body))
	}

	wav, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading audio data: %w", err)
	}

	pcm, err := extractPCM(wav)
	if err != nil {
		return nil, err
	}
	c.log.Debug("azure tts: got %d bytes of PCM", len(pcm))
	return pcm, nil
}

var riffFormat = regexp.MustCompile(`^riff-(\d+)(khz|hz)-16bit-mono-pcm$`)

// formatSampleRate returns the sample rate of a RIFF 16-bit mono output
// format such as "riff-16khz-16bit-mono-pcm" or "riff-22050hz-16bit-mono-pcm".
func formatSampleRate(format string) (int, error) {
	m := riffFormat.FindStringSubmatch(strings.ToLower(format))
	if m == nil {
		return 0, fmt.Errorf("unsupported output format %q", format)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("unsupported output format %q", format)
	}
	if m[2] == "khz" {
		n *= 1000
	}
	return n, nil
}

// buildSSML creates SSML markup for one utterance. The text is escaped.
func buildSSML(voice domain.Voice, u domain.Utterance) string {
	var text bytes.Buffer
	_ = xml.EscapeText(&text, []byte(u.Text))

	lang := voice.Locale
	if lang == "" {
		lang = u.Locale
	}
	return fmt.Sprintf(
		`<speak version='1.0' xml:lang='%s'><voice xml:lang='%s' name='%s'><prosody rate='%s' pitch='%s'>%s</prosody></voice></speak>`,
		lang, lang, voice.Name, ssmlRate(u.Rate), ssmlPitch(u.Pitch), text.String(),
	)
}
