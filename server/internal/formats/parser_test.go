package formats

import "testing"

func TestParseLine(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		ok       bool
		expected Candidate
	}{
		{
			name: "compact video line",
			line: "137 mp4 1920x1080 avc1 30fps ~76.46MiB",
			ok:   true,
			expected: Candidate{
				FormatId: "137", Kind: KindVideo, Resolution: "1080p",
				FrameRate: 30, SizeMB: 76.46, HasSize: true, Approx: true,
			},
		},
		{
			name:     "compact audio line",
			line:     "140 m4a audio only m4a aac",
			ok:       true,
			expected: Candidate{FormatId: "140", Kind: KindAudio},
		},
		{
			name: "columnar video line with bare fps column",
			line: "136     mp4   1280x720    30    │ ~ 37.79MiB 2192k https │ avc1.4d401f    2192k video only          720p, mp4_dash",
			ok:   true,
			expected: Candidate{
				FormatId: "136", Kind: KindVideo, Resolution: "720p",
				FrameRate: 30, SizeMB: 37.79, HasSize: true, Approx: true,
			},
		},
		{
			name: "columnar video line with fractional fps column",
			line: "30080   mp4   1920x1080   29.970 │ ~120.50MiB 1602k https │ avc1.640032    1602k video only",
			ok:   true,
			expected: Candidate{
				FormatId: "30080", Kind: KindVideo, Resolution: "1080p",
				FrameRate: 29, SizeMB: 120.5, HasSize: true, Approx: true,
			},
		},
		{
			name: "fps column above the bound is ignored",
			line: "137     mp4   1920x1080   480.5 │ ~ 76.46MiB 1602k https │ avc1.640028    1602k video only",
			ok:   true,
			expected: Candidate{
				FormatId: "137", Kind: KindVideo, Resolution: "1080p",
				SizeMB: 76.46, HasSize: true, Approx: true,
			},
		},
		{
			name: "columnar audio line",
			line: "140     m4a   audio only      2 │    3.27MiB  129k https │ audio only        mp4a.40.2  129k 44k medium, m4a_dash",
			ok:   true,
			expected: Candidate{
				FormatId: "140", Kind: KindAudio, SizeMB: 3.27, HasSize: true,
			},
		},
		{
			name: "muxed stream is video",
			line: "18      mp4   640x360     30  2 │ ≈ 12.5MiB  516k https │ avc1.42001E         mp4a.40.2       44k 360p",
			ok:   true,
			expected: Candidate{
				FormatId: "18", Kind: KindVideo, Resolution: "360p",
				FrameRate: 30, SizeMB: 12.5, HasSize: true, Approx: true,
			},
		},
		{
			name: "gigabytes and fractional fps",
			line: "401 mp4 3840x2160 H264 59.94fps =1.5GiB",
			ok:   true,
			expected: Candidate{
				FormatId: "401", Kind: KindVideo, Resolution: "2160p",
				FrameRate: 59, SizeMB: 1536, HasSize: true,
			},
		},
		{
			name: "kibibytes",
			line: "139 m4a audio only AAC 512KiB",
			ok:   true,
			expected: Candidate{
				FormatId: "139", Kind: KindAudio, SizeMB: 0.5, HasSize: true,
			},
		},
		{
			name: "first size token wins",
			line: "22 mp4 1280x720 avc1 10.00MiB 20.00MiB",
			ok:   true,
			expected: Candidate{
				FormatId: "22", Kind: KindVideo, Resolution: "720p", SizeMB: 10, HasSize: true,
			},
		},
		{
			name: "fps separated from its number",
			line: "298 mp4 1280x720 avc1 60 fps",
			ok:   true,
			expected: Candidate{
				FormatId: "298", Kind: KindVideo, Resolution: "720p", FrameRate: 60,
			},
		},
		{
			name: "vp9 stream is ignored",
			line: "248 webm 1920x1080 30 │ ~ 60.00MiB https │ vp9 video only",
		},
		{
			name: "video codec without resolution",
			line: "hls-master mp4 avc1 unknown",
		},
		{
			name: "header line",
			line: "ID  EXT   RESOLUTION FPS CH │   FILESIZE   TBR PROTO │ VCODEC          VBR ACODEC      ABR ASR MORE INFO",
		},
		{
			name: "log line mentioning a codec",
			line: "[info] Downloading format avc1 1920x1080",
		},
		{
			name: "empty line",
			line: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseLine(tt.line)

			if ok != tt.ok {
				t.Fatalf("expected ok=%v, got %v (%+v)", tt.ok, ok, got)
			}
			if !ok {
				return
			}
			if got != tt.expected {
				t.Errorf("expected %+v, got %+v", tt.expected, got)
			}
		})
	}
}

func TestParseLineIsIdempotent(t *testing.T) {
	line := "137 mp4 1920x1080 avc1 30fps ~76.46MiB"

	first, ok1 := ParseLine(line)
	second, ok2 := ParseLine(line)

	if ok1 != ok2 || first != second {
		t.Errorf("expected identical results, got %+v/%v and %+v/%v", first, ok1, second, ok2)
	}
}
