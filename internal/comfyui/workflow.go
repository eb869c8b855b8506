package comfyui

import (
	"github.com/shouni/go-media-studio/pkg/resolution"
)

// Node は ComfyUI の API 形式ワークフローの1ノードなのだ。
type Node struct {
	Inputs    map[string]any `json:"inputs"`
	ClassType string         `json:"class_type"`
}

// Workflow はノードIDをキーにしたワークフロー全体なのだ。
type Workflow map[string]Node

// link は別ノードの出力への参照なのだ。
func link(id string, output int) []any {
	return []any{id, output}
}

// ImageJob は Flux によるサンプル画像生成の依頼内容なのだ。
type ImageJob struct {
	Prompt    string
	Folder    string
	BaseName  string
	Seed      int64
	BatchSize int
}

const (
	DefaultImageBaseName = "example"
	DefaultVideoBaseName = "video"
	DefaultImageBatch    = 4
	imageLatentSize      = 1024
)

// FluxImageWorkflow は flux_schnell でバッチ生成するワークフローを組み立てるのだ。
// 動画向けに書かれたプロンプトでも静止画になるよう、video/film/footage を image に置き換えるのだ。
func FluxImageWorkflow(job ImageJob) Workflow {
	return Workflow{
		"8": {ClassType: "VAEDecode", Inputs: map[string]any{
			"samples": link("31", 0),
			"vae":     link("30", 2),
		}},
		"9": {ClassType: "SaveImage", Inputs: map[string]any{
			"filename_prefix": job.Folder + "/" + job.BaseName,
			"images":          link("8", 0),
		}},
		"27": {ClassType: "EmptySD3LatentImage", Inputs: map[string]any{
			"width":      imageLatentSize,
			"height":     imageLatentSize,
			"batch_size": job.BatchSize,
		}},
		"30": {ClassType: "CheckpointLoaderSimple", Inputs: map[string]any{
			"ckpt_name": "flux_schnell.safetensors",
		}},
		"31": {ClassType: "KSampler", Inputs: map[string]any{
			"seed":         job.Seed,
			"steps":        6,
			"cfg":          1,
			"sampler_name": "euler",
			"scheduler":    "simple",
			"denoise":      1,
			"model":        link("30", 0),
			"positive":     link("43", 0),
			"negative":     link("33", 0),
			"latent_image": link("27", 0),
		}},
		"33": {ClassType: "CLIPTextEncode", Inputs: map[string]any{
			"text": "",
			"clip": link("30", 1),
		}},
		"37": replaceNode(link("42", 0), "video"),
		"38": replaceNode(link("37", 0), "film"),
		"39": replaceNode(link("38", 0), "footage"),
		"42": {ClassType: "StringFunction|pysssss", Inputs: map[string]any{
			"action":    "append",
			"tidy_tags": "no",
			"text_a":    job.Prompt,
			"result":    job.Prompt,
		}},
		"43": {ClassType: "CLIPTextEncode", Inputs: map[string]any{
			"text": link("39", 0),
			"clip": link("30", 1),
		}},
	}
}

func replaceNode(src []any, old string) Node {
	return Node{ClassType: "String Replace (mtb)", Inputs: map[string]any{
		"string": src,
		"old":    old,
		"new":    "image",
	}}
}

// VideoJob は HunyuanVideo による動画生成の依頼内容なのだ。
type VideoJob struct {
	Prompt      string
	Folder      string
	BaseName    string
	Seed        int64
	FrameLength int
	Width       int
	Height      int
	Upscale     bool
}

// HunyuanVideoWorkflow は text-to-video のワークフローを組み立てるのだ。
// Upscale が有効なら、デコード後に 4x モデルで拡大して比率ごとの最終解像度に縮小するのだ。
func HunyuanVideoWorkflow(job VideoJob) Workflow {
	wf := Workflow{
		"10": {ClassType: "VAELoader", Inputs: map[string]any{
			"vae_name": "hunyuan_video_vae_bf16.safetensors",
		}},
		"11": {ClassType: "DualCLIPLoader", Inputs: map[string]any{
			"clip_name1": "clip_l.safetensors",
			"clip_name2": "llava_llama3_fp8_scaled.safetensors",
			"type":       "hunyuan_video",
		}},
		"12": {ClassType: "UNETLoader", Inputs: map[string]any{
			"unet_name":    "hunyuan_video_t2v_720p_bf16.safetensors",
			"weight_dtype": "default",
		}},
		"13": {ClassType: "SamplerCustomAdvanced", Inputs: map[string]any{
			"noise":        link("25", 0),
			"guider":       link("22", 0),
			"sampler":      link("16", 0),
			"sigmas":       link("17", 0),
			"latent_image": link("45", 0),
		}},
		"16": {ClassType: "KSamplerSelect", Inputs: map[string]any{
			"sampler_name": "euler",
		}},
		"17": {ClassType: "BasicScheduler", Inputs: map[string]any{
			"scheduler": "simple",
			"steps":     8,
			"denoise":   1,
			"model":     link("12", 0),
		}},
		"22": {ClassType: "BasicGuider", Inputs: map[string]any{
			"model":        link("79", 0),
			"conditioning": link("26", 0),
		}},
		"25": {ClassType: "RandomNoise", Inputs: map[string]any{
			"noise_seed": job.Seed,
		}},
		"26": {ClassType: "FluxGuidance", Inputs: map[string]any{
			"guidance":     6,
			"conditioning": link("44", 0),
		}},
		"44": {ClassType: "CLIPTextEncode", Inputs: map[string]any{
			"text": job.Prompt,
			"clip": link("11", 0),
		}},
		"45": {ClassType: "EmptyHunyuanLatentVideo", Inputs: map[string]any{
			"width":      job.Width,
			"height":     job.Height,
			"length":     job.FrameLength,
			"batch_size": 1,
		}},
		"67": {ClassType: "ModelSamplingSD3", Inputs: map[string]any{
			"shift": 7,
			"model": link("12", 0),
		}},
		"73": {ClassType: "VAEDecodeTiled", Inputs: map[string]any{
			"tile_size":        256,
			"overlap":          64,
			"temporal_size":    64,
			"temporal_overlap": 8,
			"samples":          link("13", 0),
			"vae":              link("10", 0),
		}},
		"79": {ClassType: "LoraLoaderModelOnly", Inputs: map[string]any{
			"lora_name":      "hyvideo_FastVideo_LoRA-fp8.safetensors",
			"strength_model": 0.8,
			"model":          link("67", 0),
		}},
	}

	frames := link("73", 0)
	if job.Upscale {
		target := resolution.UpscaleTargetFor(job.Width, job.Height)
		wf["87"] = Node{ClassType: "UpscaleModelLoader", Inputs: map[string]any{
			"model_name": "4x_foolhardy_Remacri.pth",
		}}
		wf["88"] = Node{ClassType: "ImageUpscaleWithModel", Inputs: map[string]any{
			"upscale_model": link("87", 0),
			"image":         link("73", 0),
		}}
		wf["89"] = Node{ClassType: "ImageScale", Inputs: map[string]any{
			"upscale_method": "lanczos",
			"width":          target.Width,
			"height":         target.Height,
			"crop":           "center",
			"image":          link("88", 0),
		}}
		frames = link("89", 0)
	}

	wf["75"] = Node{ClassType: "VHS_VideoCombine", Inputs: map[string]any{
		"frame_rate":      24,
		"loop_count":      0,
		"filename_prefix": job.Folder + "/" + job.BaseName,
		"format":          "video/nvenc_h264-mp4",
		"pix_fmt":         "yuv420p",
		"bitrate":         10,
		"megabit":         true,
		"save_metadata":   false,
		"pingpong":        false,
		"save_output":     true,
		"images":          frames,
	}}
	return wf
}
