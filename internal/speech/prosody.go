package speech

import (
	"fmt"
	"math"

	"github.com/hammamikhairi/metrovox/internal/domain"
)

// ssmlRate maps a normalized rate (0.5 = normal speed) to an SSML relative
// rate such as "-20%".
func ssmlRate(rate float64) string {
	pct := (rate - domain.DefaultRate) * 200
	pct = math.Max(-50, math.Min(100, pct))
	return signedPercent(pct)
}

// ssmlPitch maps a pitch multiplier (1.0 = voice default) to an SSML
// relative pitch such as "+10%".
func ssmlPitch(pitch float64) string {
	if pitch <= 0 {
		pitch = 1
	}
	pct := (pitch - 1) * 100
	pct = math.Max(-50, math.Min(100, pct))
	return signedPercent(pct)
}

// tencentSpeed maps a normalized rate to Tencent's speed scale, where 0 is
// normal, -2 is 0.6x and 6 is 2.5x.
func tencentSpeed(rate float64) float64 {
	speed := (rate/domain.DefaultRate - 1) * 5
	return math.Max(-2, math.Min(6, speed))
}

func signedPercent(pct float64) string {
	n := int(math.Round(pct))
	if n >= 0 {
		return fmt.Sprintf("+%d%%", n)
	}
	return fmt.Sprintf("%d%%", n)
}
