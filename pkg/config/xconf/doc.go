// Package xconf 提供分层配置加载和热重载，基于 koanf 实现。
//
// # 加载顺序
//
// 每次加载（包括 Reload）都从空白 koanf 实例开始，按以下顺序叠加：
//
//  1. WithDefaults 提供的默认配置
//  2. 配置文件（New）或字节数据（NewFromBytes）
//  3. WithEnvOverrides 声明的环境变量
//
// 后加载的层覆盖同名键。加载失败时保留旧配置。
//
// # 支持的格式
//
//   - YAML（推荐）：.yaml, .yml
//   - JSON：.json
//
// # 并发安全
//
// Reload 通过互斥锁序列化，成功后整体替换 koanf 实例。
// Client() 返回的是快照，Reload 后旧指针仍可用但数据已过期，
// 因此每次需要时调用 Client()，不要长期缓存。
//
// # Unmarshal
//
// Unmarshal 使用 koanf 默认的 mapstructure 配置：允许弱类型转换
// （环境变量 "3" 可写入 int 字段），"500ms" 可解析为 time.Duration。
// 字段校验由调用方在 Unmarshal 之后完成。
//
// # 配置监视
//
// Watch 基于 fsnotify 监视配置文件所在目录，内置防抖，
// 支持 vim/emacs 和 K8s ConfigMap 的原子替换。
// Watcher.Run(ctx) 阻塞运行，ctx 取消后返回 nil。
package xconf
