// Package main quill 命令行：在本地文本上驱动续写状态机
package main

func main() {
	Execute()
}
