package extract

import (
	"bufio"
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
	"os"
	"strings"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
	"golang.org/x/image/draw"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
)

// Recognizer runs a CRNN-style ONNX text-recognition model and decodes its
// output with greedy CTC against a charset file. The charset lists one
// character per line for class indexes 1..N; index 0 is the CTC blank.
type Recognizer struct {
	mu sync.Mutex

	modelPath   string
	charsetPath string
	libPath     string

	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	charset []rune

	inputH int
	inputW int
	inited bool
}

// NewRecognizer creates a recognizer that lazily loads the ONNX model and
// charset on first use.
func NewRecognizer(modelPath, charsetPath, onnxLibPath string) *Recognizer {
	return &Recognizer{
		modelPath:   modelPath,
		charsetPath: charsetPath,
		libPath:     onnxLibPath,
	}
}

func (r *Recognizer) initOnce() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.inited {
		return nil
	}

	if r.libPath != "" {
		ort.SetSharedLibraryPath(r.libPath)
	}

	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("onnx init environment: %w", err)
	}

	charset, err := loadCharset(r.charsetPath)
	if err != nil {
		return fmt.Errorf("load charset: %w", err)
	}
	r.charset = charset

	inputs, outputs, err := ort.GetInputOutputInfo(r.modelPath)
	if err != nil {
		return fmt.Errorf("onnx get input/output info: %w", err)
	}
	if len(inputs) == 0 || len(outputs) == 0 {
		return fmt.Errorf("onnx model has no inputs or outputs")
	}
	inputShape := inputs[0].Dimensions
	outputShape := outputs[0].Dimensions
	if len(inputShape) != 4 {
		return fmt.Errorf("unexpected input rank %d, want NCHW", len(inputShape))
	}
	r.inputH = int(inputShape[2])
	r.inputW = int(inputShape[3])

	inputTensor, err := ort.NewEmptyTensor[float32](inputShape)
	if err != nil {
		return fmt.Errorf("onnx new input tensor: %w", err)
	}
	r.input = inputTensor

	outputTensor, err := ort.NewEmptyTensor[float32](outputShape)
	if err != nil {
		inputTensor.Destroy()
		return fmt.Errorf("onnx new output tensor: %w", err)
	}
	r.output = outputTensor

	inputNames := make([]string, len(inputs))
	for i := range inputs {
		inputNames[i] = inputs[i].Name
	}
	outputNames := make([]string, len(outputs))
	for i := range outputs {
		outputNames[i] = outputs[i].Name
	}

	session, err := ort.NewAdvancedSession(r.modelPath, inputNames, outputNames,
		[]ort.Value{r.input}, []ort.Value{r.output}, nil)
	if err != nil {
		outputTensor.Destroy()
		inputTensor.Destroy()
		return fmt.Errorf("onnx new session: %w", err)
	}
	r.session = session
	r.inited = true
	return nil
}

func loadCharset(path string) ([]rune, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var charset []rune
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if line == "" {
			charset = append(charset, ' ')
			continue
		}
		charset = append(charset, []rune(line)[0])
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(charset) == 0 {
		return nil, fmt.Errorf("charset file %s is empty", path)
	}
	return charset, nil
}

// Recognize decodes the image, preprocesses it to the model's greyscale
// input, runs inference, and CTC-decodes the logits into text.
func (r *Recognizer) Recognize(imageData []byte) (string, error) {
	if err := r.initOnce(); err != nil {
		return "", err
	}

	img, err := decodeImage(imageData)
	if err != nil {
		return "", fmt.Errorf("decode image: %w", err)
	}

	inputData := r.preprocess(img)

	r.mu.Lock()
	inData := r.input.GetData()
	if len(inData) < len(inputData) {
		r.mu.Unlock()
		return "", fmt.Errorf("input tensor size %d < preprocessed %d", len(inData), len(inputData))
	}
	copy(inData, inputData)
	err = r.session.Run()
	if err != nil {
		r.mu.Unlock()
		return "", fmt.Errorf("onnx run: %w", err)
	}
	outData := make([]float32, len(r.output.GetData()))
	copy(outData, r.output.GetData())
	outShape := r.output.GetShape()
	r.mu.Unlock()

	return r.ctcDecode(outData, outShape), nil
}

func decodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		// Some scanners emit streams image.Decode does not sniff; try the
		// common formats explicitly.
		img, err = jpeg.Decode(bytes.NewReader(data))
		if err != nil {
			img, err = png.Decode(bytes.NewReader(data))
			if err != nil {
				return nil, err
			}
		}
	}
	return img, nil
}

// preprocess scales img to the model's HxW, converts to greyscale, and
// normalizes to [-1, 1].
func (r *Recognizer) preprocess(img image.Image) []float32 {
	dst := image.NewRGBA(image.Rect(0, 0, r.inputW, r.inputH))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)

	out := make([]float32, r.inputH*r.inputW)
	for y := 0; y < r.inputH; y++ {
		for x := 0; x < r.inputW; x++ {
			c := dst.RGBAAt(x, y)
			grey := 0.299*float32(c.R) + 0.587*float32(c.G) + 0.114*float32(c.B)
			out[y*r.inputW+x] = grey/127.5 - 1.0
		}
	}
	return out
}

// ctcDecode runs greedy decoding: argmax per timestep, collapse repeats,
// drop blanks (class 0). Class i>0 maps to charset[i-1].
func (r *Recognizer) ctcDecode(logits []float32, shape []int64) string {
	if len(shape) == 0 {
		return ""
	}
	classes := int(shape[len(shape)-1])
	if classes <= 0 || len(logits) < classes {
		return ""
	}
	timesteps := len(logits) / classes

	var sb strings.Builder
	prev := 0
	for t := 0; t < timesteps; t++ {
		row := logits[t*classes : (t+1)*classes]
		best := 0
		for i := 1; i < classes; i++ {
			if row[i] > row[best] {
				best = i
			}
		}
		if best != 0 && best != prev && best-1 < len(r.charset) {
			sb.WriteRune(r.charset[best-1])
		}
		prev = best
	}
	return strings.TrimSpace(sb.String())
}
