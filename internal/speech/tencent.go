package speech

import (
	"context"
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/profile"
	tts "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/tts/v20190823"

	"github.com/hammamikhairi/metrovox/internal/domain"
	"github.com/hammamikhairi/metrovox/internal/logger"
)

// Compile-time interface check.
var _ domain.Synthesizer = (*TencentClient)(nil)

// Tencent primary language codes.
const (
	tencentLangChinese = 1
	tencentLangEnglish = 2
)

// TencentClient synthesizes speech with Tencent Cloud TTS. Voices are
// numeric voice types; rate maps to the service's speed scale and pitch is
// not supported.
type TencentClient struct {
	client *tts.Client
	log    *logger.Logger
}

// NewTencentClient creates a Tencent Cloud TTS client.
func NewTencentClient(secretID, secretKey, region string, log *logger.Logger) (*TencentClient, error) {
	if secretID == "" || secretKey == "" {
		return nil, fmt.Errorf("tencent tts: %w: secret id and key required", domain.ErrNotConfigured)
	}
	if region == "" {
		region = "ap-guangzhou"
	}

	credential := common.NewCredential(secretID, secretKey)
	cpf := profile.NewClientProfile()
	cpf.HttpProfile.Endpoint = "tts.tencentcloudapi.com"

	client, err := tts.NewClient(credential, region, cpf)
	if err != nil {
		return nil, fmt.Errorf("tencent tts client: %w", err)
	}
	log.Debug("tencent tts: client ready (region=%s)", region)
	return &TencentClient{client: client, log: log}, nil
}

// Name identifies the backend in logs.
func (c *TencentClient) Name() string { return "tencent" }

// SampleRate returns the PCM sample rate of synthesized audio.
func (c *TencentClient) SampleRate() int { return TencentSampleRate }

// Synthesize requests MP3 audio for the utterance and decodes it to PCM.
func (c *TencentClient) Synthesize(ctx context.Context, voice domain.Voice, u domain.Utterance) ([]byte, error) {
	voiceType, err := strconv.ParseInt(voice.Name, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("tencent tts: voice %q is not a voice type: %w", voice.Name, err)
	}

	lang := int64(tencentLangChinese)
	if strings.HasPrefix(strings.ToLower(voice.Locale), "en") {
		lang = tencentLangEnglish
	}

	req := tts.NewTextToVoiceRequest()
	req.Text = common.StringPtr(u.Text)
	session := u.ID
	if session == "" {
		session = uuid.NewString()
	}
	req.SessionId = common.StringPtr(session)
	req.VoiceType = common.Int64Ptr(voiceType)
	req.PrimaryLanguage = common.Int64Ptr(lang)
	req.Codec = common.StringPtr("mp3")
	req.Speed = common.Float64Ptr(tencentSpeed(u.Rate))
	req.Volume = common.Float64Ptr(5.0)

	c.log.Debug("tencent tts: synthesizing %d chars with voice %d", len([]rune(u.Text)), voiceType)

	resp, err := c.client.TextToVoiceWithContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("tencent tts: %w", err)
	}
	if resp.Response == nil || resp.Response.Audio == nil {
		return nil, fmt.Errorf("tencent tts: %w", domain.ErrNoAudio)
	}

	mp3Data, err := base64.StdEncoding.DecodeString(*resp.Response.Audio)
	if err != nil {
		return nil, fmt.Errorf("tencent tts: base64: %w", err)
	}
	return decodeMP3(mp3Data, TencentSampleRate)
}
