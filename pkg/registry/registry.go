// Package registry 保存解码完成的骨骼动画数据
//
// 数据按名称索引（同名后注册者覆盖先注册者），并记录每个名称来自哪个源文档，
// 以便按文档整体移除。
package registry

import (
	"log"
	"sort"
	"sync"

	"github.com/decker502/armature/internal/armature"
)

// documentEntry 一个源文档注册过的名称
type documentEntry struct {
	armatures  []string
	animations []string
	textures   []string
}

// Registry 骨骼动画数据注册表
// 并发安全：后台加载线程与主线程可同时写入
type Registry struct {
	mu         sync.RWMutex
	armatures  map[string]*armature.ArmatureData
	animations map[string]*armature.AnimationData
	textures   map[string]*armature.TextureData
	documents  map[string]*documentEntry // 源文档路径 -> 注册的名称
	owners     map[string]string         // kind + name -> 源文档路径

	verbose bool
}

// New 创建空注册表
func New() *Registry {
	return &Registry{
		armatures:  make(map[string]*armature.ArmatureData),
		animations: make(map[string]*armature.AnimationData),
		textures:   make(map[string]*armature.TextureData),
		documents:  make(map[string]*documentEntry),
		owners:     make(map[string]string),
	}
}

// SetVerbose 开启后每次注册都输出日志
func (r *Registry) SetVerbose(v bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.verbose = v
}

const (
	kindArmature  = "armature:"
	kindAnimation = "animation:"
	kindTexture   = "texture:"
)

func (r *Registry) document(path string) *documentEntry {
	doc, ok := r.documents[path]
	if !ok {
		doc = &documentEntry{}
		r.documents[path] = doc
	}
	return doc
}

// AddArmature 注册骨架
//
// 参数：
//   - data: 骨架数据，按 data.Name 索引
//   - document: 源文档路径，可为空
func (r *Registry) AddArmature(data *armature.ArmatureData, document string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.armatures[data.Name] = data
	r.track(kindArmature, data.Name, document, func(d *documentEntry) *[]string { return &d.armatures })
}

// AddAnimation 注册动画集
func (r *Registry) AddAnimation(data *armature.AnimationData, document string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.animations[data.Name] = data
	r.track(kindAnimation, data.Name, document, func(d *documentEntry) *[]string { return &d.animations })
}

// AddTexture 注册纹理
func (r *Registry) AddTexture(data *armature.TextureData, document string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.textures[data.Name] = data
	r.track(kindTexture, data.Name, document, func(d *documentEntry) *[]string { return &d.textures })
}

// track 记录名称归属，调用方需持有写锁
func (r *Registry) track(kind, name, document string, list func(*documentEntry) *[]string) {
	if r.verbose {
		log.Printf("[Registry] Added %s%s (document=%q)", kind, name, document)
	}
	r.owners[kind+name] = document
	if document == "" {
		return
	}
	names := list(r.document(document))
	for _, n := range *names {
		if n == name {
			return
		}
	}
	*names = append(*names, name)
}

// AddBundle 注册一个文档解码出的全部数据
// 每次插入单独加锁，解码与注册之间不持有锁
func (r *Registry) AddBundle(b *armature.Bundle) {
	for _, a := range b.Armatures {
		r.AddArmature(a, b.Path)
	}
	for _, a := range b.Animations {
		r.AddAnimation(a, b.Path)
	}
	for _, t := range b.Textures {
		r.AddTexture(t, b.Path)
	}
}

// Armature 按名称查找骨架，不存在返回 nil
// 实现 armature.ArmatureLookup，供解码动画时解析父骨骼
func (r *Registry) Armature(name string) *armature.ArmatureData {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.armatures[name]
}

// Animation 按名称查找动画集，不存在返回 nil
func (r *Registry) Animation(name string) *armature.AnimationData {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.animations[name]
}

// Texture 按名称查找纹理，不存在返回 nil
func (r *Registry) Texture(name string) *armature.TextureData {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.textures[name]
}

// RemoveDocument 移除一个文档注册的全部数据
// 如果某名称已被其他文档覆盖注册，则保留
//
// 返回：
//   - int: 实际移除的条目数
func (r *Registry) RemoveDocument(path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, ok := r.documents[path]
	if !ok {
		return 0
	}
	delete(r.documents, path)

	removed := 0
	for _, name := range doc.armatures {
		if r.owners[kindArmature+name] == path {
			delete(r.armatures, name)
			delete(r.owners, kindArmature+name)
			removed++
		}
	}
	for _, name := range doc.animations {
		if r.owners[kindAnimation+name] == path {
			delete(r.animations, name)
			delete(r.owners, kindAnimation+name)
			removed++
		}
	}
	for _, name := range doc.textures {
		if r.owners[kindTexture+name] == path {
			delete(r.textures, name)
			delete(r.owners, kindTexture+name)
			removed++
		}
	}

	log.Printf("[Registry] Removed %d entries of document %s", removed, path)
	return removed
}

// ArmatureNames 返回已注册骨架名称（已排序）
func (r *Registry) ArmatureNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.armatures)
}

// AnimationNames 返回已注册动画集名称（已排序）
func (r *Registry) AnimationNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.animations)
}

// TextureNames 返回已注册纹理名称（已排序）
func (r *Registry) TextureNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.textures)
}

// Documents 返回注册过数据的文档路径（已排序）
func (r *Registry) Documents() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedKeys(r.documents)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
