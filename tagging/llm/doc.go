// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package llm implements the tagging.Backend interface using LLM chat APIs.
//
// This package uses the langchaingo library to communicate with OpenAI or
// OpenAI-compatible services, or with a local Ollama server. Responses are
// requested in JSON mode and parsed leniently: markdown code fences are
// stripped and common key-quoting mistakes are repaired before giving up.
//
// # Usage
//
//	config := tagging.DefaultConfig()
//	// Or customize:
//	config := &tagging.Config{
//	    Type:  tagging.BackendOllama,
//	    Host:  "http://localhost:11434",
//	    Model: "qwen2.5:3b",
//	}
//
//	backend, err := llm.NewTagger(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	responses, err := backend.GenerateTags(ctx, requests)
package llm
