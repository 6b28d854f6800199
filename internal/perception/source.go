package perception

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"limp/internal/gateway/provider"
)

// Frame 待分析的一帧：序号、在视频里的时刻和编码好的图像。
type Frame struct {
	Index     int
	Timestamp float64
	Image     provider.ImagePayload
}

// FrameSource 按时间顺序提供一个 episode 的采样帧。
type FrameSource interface {
	EpisodeID() string
	Frames() ([]Frame, error)
}

var frameExtensions = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
	".webp": "image/webp",
}

// DirFrameSource 从预处理产出的帧目录读取图像。
// 文件名按字典序排列即为时间顺序（frame_000001.jpg ...）。
type DirFrameSource struct {
	episodeID string
	dir       string
	fps       float64
	sampleFPS float64
}

// NewDirFrameSource reads frames extracted at fps and samples them
// down to sampleFPS for the vision model.
func NewDirFrameSource(episodeID, dir string, fps, sampleFPS float64) *DirFrameSource {
	if fps <= 0 {
		fps = 1
	}
	if sampleFPS <= 0 || sampleFPS > fps {
		sampleFPS = fps
	}
	return &DirFrameSource{episodeID: episodeID, dir: dir, fps: fps, sampleFPS: sampleFPS}
}

func (s *DirFrameSource) EpisodeID() string { return s.episodeID }

func (s *DirFrameSource) Frames() ([]Frame, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read frames dir %s: %w", s.dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if _, ok := frameExtensions[ext]; ok {
			names = append(names, entry.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no frame images in %s", s.dir)
	}
	sort.Strings(names)

	step := int(s.fps / s.sampleFPS)
	if step < 1 {
		step = 1
	}

	var frames []Frame
	for i := 0; i < len(names); i += step {
		image, err := encodeFrameImage(filepath.Join(s.dir, names[i]))
		if err != nil {
			return nil, err
		}
		frames = append(frames, Frame{
			Index:     i,
			Timestamp: float64(i) / s.fps,
			Image:     image,
		})
	}
	return frames, nil
}

func encodeFrameImage(path string) (provider.ImagePayload, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return provider.ImagePayload{}, fmt.Errorf("read frame %s: %w", path, err)
	}
	mime := frameExtensions[strings.ToLower(filepath.Ext(path))]
	return provider.ImagePayload{
		DataURI:     fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(raw)),
		Description: filepath.Base(path),
	}, nil
}
