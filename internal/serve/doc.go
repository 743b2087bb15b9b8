// Package serve 实现请求分发：stat → 新鲜度 → 区间 → 压缩 → 流式输出，
// 目录则渲染列表页。所有在写出响应前发生的失败统一折叠为 404。
//
// 写出开始后（body stream 已交给 fasthttp）的读取失败无法再改写响应，
// 只会被记录为 stream_failed，连接由 fasthttp 直接断开。
package serve
