// Package assetfs 提供资源文件的统一访问接口
//
// 资源可以来自两类来源：
//   - 挂载的 fs.FS（例如 embed.FS），按路径前缀选择，例如 "assets/"
//   - 操作系统文件系统，相对路径基于 Resolver 的根目录解析
//
// 挂载的文件系统优先；前缀不匹配或挂载中不存在时回退到操作系统文件系统。
package assetfs

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// ErrEmptyPath 路径为空
var ErrEmptyPath = errors.New("assetfs: empty path")

// Resolver 资源路径解析器
// 并发安全：Mount 可以与读取操作并发调用
type Resolver struct {
	root string

	mu     sync.RWMutex
	mounts map[string]fs.FS // 路径前缀 -> 文件系统（文件系统内保留前缀）
}

// New 创建资源解析器
//
// 参数：
//   - root: 操作系统文件系统中的根目录，空字符串表示当前工作目录
func New(root string) *Resolver {
	return &Resolver{
		root:   root,
		mounts: make(map[string]fs.FS),
	}
}

// Root 返回操作系统根目录
func (r *Resolver) Root() string {
	return r.root
}

// Mount 将 fsys 挂载到路径前缀 prefix 下
// fsys 中的文件路径需包含该前缀（与 embed.FS 的目录结构一致）
func (r *Resolver) Mount(prefix string, fsys fs.FS) {
	prefix = Normalize(prefix)
	if !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.mounts[prefix] = fsys
}

// Normalize 标准化路径：统一为正斜杠、清理 "." 与 ".."、移除 "./" 前缀
// 同一文件的不同写法会得到相同结果，可用作去重键
func Normalize(p string) string {
	if p == "" {
		return ""
	}
	p = filepath.ToSlash(p)
	trailing := strings.HasSuffix(p, "/")
	p = path.Clean(p)
	p = strings.TrimPrefix(p, "./")
	if trailing && p != "/" {
		p += "/"
	}
	return p
}

// mountFor 返回匹配最长前缀的挂载文件系统
func (r *Resolver) mountFor(name string) (fs.FS, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	best := ""
	var found fs.FS
	for prefix, fsys := range r.mounts {
		if strings.HasPrefix(name, prefix) && len(prefix) > len(best) {
			best = prefix
			found = fsys
		}
	}
	return found, found != nil
}

// FullPath 返回操作系统中的完整路径
func (r *Resolver) FullPath(name string) string {
	name = Normalize(name)
	if path.IsAbs(name) || filepath.IsAbs(name) || r.root == "" {
		return filepath.FromSlash(name)
	}
	return filepath.Join(r.root, filepath.FromSlash(name))
}

// ReadFile 读取文件内容
//
// 参数：
//   - name: 资源路径
//
// 返回：
//   - []byte: 文件内容
//   - error: 文件不存在或读取失败时返回错误
func (r *Resolver) ReadFile(name string) ([]byte, error) {
	name = Normalize(name)
	if name == "" {
		return nil, ErrEmptyPath
	}

	if fsys, ok := r.mountFor(name); ok {
		data, err := fs.ReadFile(fsys, name)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read %s: %w", name, err)
		}
	}

	data, err := os.ReadFile(r.FullPath(name))
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", name, err)
	}
	return data, nil
}

// Open 打开文件
func (r *Resolver) Open(name string) (fs.File, error) {
	name = Normalize(name)
	if name == "" {
		return nil, ErrEmptyPath
	}

	if fsys, ok := r.mountFor(name); ok {
		f, err := fsys.Open(name)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return os.Open(r.FullPath(name))
}

// Exists 检查文件是否存在
func (r *Resolver) Exists(name string) bool {
	f, err := r.Open(name)
	if err != nil {
		return false
	}
	f.Close()
	return true
}

// Glob 匹配文件，结果合并挂载文件系统与操作系统文件系统，已排序去重
func (r *Resolver) Glob(pattern string) ([]string, error) {
	pattern = Normalize(pattern)

	seen := make(map[string]bool)
	var out []string

	if fsys, ok := r.mountFor(pattern); ok {
		matches, err := fs.Glob(fsys, pattern)
		if err != nil {
			return nil, err
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}

	matches, err := filepath.Glob(r.FullPath(pattern))
	if err != nil {
		return nil, err
	}
	for _, m := range matches {
		if r.root != "" {
			if rel, err := filepath.Rel(r.root, m); err == nil {
				m = rel
			}
		}
		m = Normalize(m)
		if !seen[m] {
			seen[m] = true
			out = append(out, m)
		}
	}

	sort.Strings(out)
	return out, nil
}
