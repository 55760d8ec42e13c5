package tts

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultVoice 是未指定音色时使用的 Kokoro 音色。
const DefaultVoice = "bf_emma"

// kokoroVoices 是 Kokoro v1.0 多语言模型的音色列表（按名称排序），下标即 speaker id。
var kokoroVoices = []string{
	"af_alloy", "af_aoede", "af_bella", "af_heart", "af_jessica", "af_kore", "af_nicole",
	"af_nova", "af_river", "af_sarah", "af_sky",
	"am_adam", "am_echo", "am_eric", "am_fenrir", "am_liam", "am_michael", "am_onyx",
	"am_puck", "am_santa",
	"bf_alice", "bf_emma", "bf_isabella", "bf_lily",
	"bm_daniel", "bm_fable", "bm_george", "bm_lewis",
	"ef_dora", "em_alex", "em_santa",
	"ff_siwis",
	"hf_alpha", "hf_beta", "hm_omega", "hm_psi",
	"if_sara", "im_nicola",
	"jf_alpha", "jf_gongitsune", "jf_nezumi", "jf_tebukuro", "jm_kumo",
	"pf_dora", "pm_alex", "pm_santa",
	"zf_xiaobei", "zf_xiaoni", "zf_xiaoxiao", "zf_xiaoyi",
	"zm_yunjian", "zm_yunxi", "zm_yunxia", "zm_yunyang",
}

var voiceIDs = func() map[string]int {
	m := make(map[string]int, len(kokoroVoices))
	for i, name := range kokoroVoices {
		m[name] = i
	}
	return m
}()

// Voices 返回所有已知音色名称。
func Voices() []string {
	out := make([]string, len(kokoroVoices))
	copy(out, kokoroVoices)
	return out
}

// SpeakerID 将音色名称解析为 speaker id。
// 纯数字按 id 直接使用，必须落在音色表范围内。
func SpeakerID(voice string) (int, error) {
	voice = strings.TrimSpace(voice)
	if id, ok := voiceIDs[strings.ToLower(voice)]; ok {
		return id, nil
	}
	if id, err := strconv.Atoi(voice); err == nil {
		if id < 0 || id >= len(kokoroVoices) {
			return 0, fmt.Errorf("[tts] speaker id 超出范围: %d (共 %d 个音色)", id, len(kokoroVoices))
		}
		return id, nil
	}
	return 0, fmt.Errorf("[tts] 未知音色: %q，可用音色: %s", voice, strings.Join(Voices(), ", "))
}
